package server

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/photomapper/internal/media"
)

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: 40, B: uint8(y), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

var heicBody = append([]byte("\x00\x00\x00\x18ftypheic\x00\x00\x00\x00mif1heic"), make([]byte, 32)...)

func startServer(t *testing.T, decoder media.Decoder) (*MediaServiceClient, *grpc.ClientConn) {
	t.Helper()
	svc := NewMediaService(nil,
		media.NewHEICConverter(decoder, 0.9, nil),
		media.NewCompressor(100, 0.8, nil),
		media.NewThumbnailer(nil, decoder, media.ThumbnailOptions{MaxSide: 32}, nil),
		nil, nil)
	gs, _ := NewGRPCServer(svc, nil)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewMediaServiceClient(conn), conn
}

func withFile(name, declared string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), MDFileName, name, MDContentType, declared)
}

func TestMediaService_Classify(t *testing.T) {
	client, _ := startServer(t, nil)

	out, err := client.Classify(withFile("photo.HEIC", ""), wrapperspb.Bytes(heicBody))
	require.NoError(t, err)
	assert.True(t, out.Fields["is_heic"].GetBoolValue())
	assert.Equal(t, "image/heic", out.Fields["mime"].GetStringValue())

	out, err = client.Classify(withFile("unknown", ""), wrapperspb.Bytes([]byte{0xFF, 0xD8, 0xFF}))
	require.NoError(t, err)
	assert.False(t, out.Fields["is_heic"].GetBoolValue())
	assert.Equal(t, "image/jpeg", out.Fields["mime"].GetStringValue())
	assert.Equal(t, "magic-bytes", out.Fields["source"].GetStringValue())
}

func TestMediaService_NormalizeHEIC(t *testing.T) {
	jpg := testJPEG(t, 400, 200)
	client, _ := startServer(t, media.DecoderFunc(func(context.Context, []byte, float64) ([]byte, error) { return jpg, nil }))

	var header metadata.MD
	out, err := client.Normalize(withFile("photo.HEIC", ""), wrapperspb.Bytes(heicBody), grpc.Header(&header))
	require.NoError(t, err)
	assert.Equal(t, []string{"photo.jpg"}, header.Get(MDFileName))
	assert.Equal(t, []string{"image/jpeg"}, header.Get(MDContentType))

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out.GetValue()))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
}

func TestMediaService_NormalizeFailuresAreInvalidArgument(t *testing.T) {
	client, _ := startServer(t, media.DecoderFunc(func(context.Context, []byte, float64) ([]byte, error) {
		return nil, errors.New("unsupported profile")
	}))

	_, err := client.Normalize(withFile("photo.heic", ""), wrapperspb.Bytes(heicBody))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Normalize(withFile("x.jpg", "image/jpeg"), wrapperspb.Bytes([]byte("garbage")))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Normalize(withFile("x.jpg", "image/jpeg"), wrapperspb.Bytes(nil))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestMediaService_Thumbnail(t *testing.T) {
	client, _ := startServer(t, nil)

	var header metadata.MD
	out, err := client.Thumbnail(withFile("sunset.jpg", "image/jpeg"), wrapperspb.Bytes(testJPEG(t, 64, 48)), grpc.Header(&header))
	require.NoError(t, err)
	assert.Equal(t, []string{"sunset-thumb.jpg"}, header.Get(MDFileName))
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out.GetValue()))
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Width)

	_, err = client.Thumbnail(withFile("scan.dng", ""), wrapperspb.Bytes(testJPEG(t, 8, 8)))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestMediaService_ExportBatchValidation(t *testing.T) {
	client, _ := startServer(t, nil)
	_, err := client.ExportBatch(context.Background(), wrapperspb.String("not-a-uuid"))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), `"not-a-uuid"`)
}

func TestRequestIDHeader(t *testing.T) {
	client, _ := startServer(t, nil)

	var header metadata.MD
	_, err := client.Classify(withFile("a.jpg", ""), wrapperspb.Bytes([]byte{0xFF, 0xD8, 0xFF}), grpc.Header(&header))
	require.NoError(t, err)
	require.Len(t, header.Get(MDRequestID), 1)
	assert.NotEmpty(t, header.Get(MDRequestID)[0])

	ctx := metadata.AppendToOutgoingContext(withFile("a.jpg", ""), MDRequestID, "req-42")
	header = nil
	_, err = client.Classify(ctx, wrapperspb.Bytes([]byte{0xFF, 0xD8, 0xFF}), grpc.Header(&header))
	require.NoError(t, err)
	assert.Equal(t, []string{"req-42"}, header.Get(MDRequestID))
}

func TestHealth(t *testing.T) {
	_, conn := startServer(t, nil)
	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: MediaServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
