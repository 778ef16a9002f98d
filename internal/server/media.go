package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/photomapper/internal/common"
	"github.com/joseph-ayodele/photomapper/internal/export"
	"github.com/joseph-ayodele/photomapper/internal/media"
)

// MediaService exposes the single-file pipeline stages. Unlike the batch
// flow, Normalize propagates conversion and decode failures to the caller.
type MediaService struct {
	sniffer    *media.Sniffer
	converter  *media.HEICConverter
	compressor *media.Compressor
	thumbs     *media.Thumbnailer
	exports    *export.Service
	logger     *slog.Logger
}

func NewMediaService(sniffer *media.Sniffer, converter *media.HEICConverter, compressor *media.Compressor,
	thumbs *media.Thumbnailer, exports *export.Service, logger *slog.Logger) *MediaService {
	if logger == nil {
		logger = slog.Default()
	}
	if sniffer == nil {
		sniffer = media.NewSniffer(logger)
	}
	return &MediaService{
		sniffer:    sniffer,
		converter:  converter,
		compressor: compressor,
		thumbs:     thumbs,
		exports:    exports,
		logger:     logger,
	}
}

func (s *MediaService) Classify(ctx context.Context, in *wrapperspb.BytesValue) (*structpb.Struct, error) {
	f := fileFromRequest(ctx, in)
	cls := s.sniffer.Classify(f)
	out, err := structpb.NewStruct(map[string]any{
		"is_heic": cls.IsHEIC,
		"mime":    cls.MIME,
		"source":  string(cls.Source),
	})
	if err != nil {
		return nil, common.InternalErrorf("encode classification: %v", err)
	}
	return out, nil
}

func (s *MediaService) Normalize(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if len(in.GetValue()) == 0 {
		return nil, common.InvalidArgumentError("file body is required")
	}
	f := fileFromRequest(ctx, in)
	cls := s.sniffer.Classify(f)

	prepared, err := s.converter.Prepare(ctx, f, cls)
	if err != nil {
		s.logger.Warn("normalize.convert.failed", "file_name", f.Name, "error", err)
		return nil, common.ToStatus(err)
	}
	asset, err := s.compressor.Compress(ctx, prepared)
	if err != nil {
		s.logger.Warn("normalize.compress.failed", "file_name", f.Name, "error", err)
		return nil, common.ToStatus(err)
	}
	_ = grpc.SetHeader(ctx, metadata.Pairs(MDFileName, asset.Name, MDContentType, asset.MIME))
	s.logger.Info("normalize.ok", "file_name", f.Name, "out_name", asset.Name, "width", asset.Width, "height", asset.Height)
	return wrapperspb.Bytes(asset.Data), nil
}

func (s *MediaService) Thumbnail(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	f := fileFromRequest(ctx, in)
	thumb, ok := s.thumbs.Generate(ctx, f)
	if !ok {
		return nil, common.NotFoundError("no thumbnail available for " + f.Name)
	}
	_ = grpc.SetHeader(ctx, metadata.Pairs(MDFileName, thumb.Name, MDContentType, thumb.MIME))
	return wrapperspb.Bytes(thumb.Data), nil
}

func (s *MediaService) ExportBatch(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	raw := strings.TrimSpace(in.GetValue())
	batchID, err := uuid.Parse(raw)
	if err != nil {
		return nil, common.InvalidArgumentErrorf("batch_id %q must be a UUID", raw)
	}
	if s.exports == nil {
		return nil, common.InternalError("export is not configured")
	}
	xlsx, err := s.exports.ExportBatchXLSX(ctx, batchID)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "batch_id", raw, "err", err)
		return nil, common.ToStatus(err)
	}
	return wrapperspb.Bytes(xlsx), nil
}

func fileFromRequest(ctx context.Context, in *wrapperspb.BytesValue) media.SourceFile {
	name, declared := "upload", ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(MDFileName); len(v) > 0 && v[0] != "" {
			name = v[0]
		}
		if v := md.Get(MDContentType); len(v) > 0 {
			declared = v[0]
		}
	}
	return media.NewSourceFile(name, declared, in.GetValue(), time.Now())
}
