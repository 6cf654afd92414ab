package assistant

import (
	"context"

	"go.uber.org/zap"

	"aminestudio/internal/codeblock"
	"aminestudio/internal/gemini"
	"aminestudio/internal/redis"
	"aminestudio/internal/scene"
)

// RefineLineArt asks the image model to redraw a rough sketch as
// clean black-on-white line art. Results are cached by source image
// hash; a reply without an image yields (nil, nil) so callers can fall
// back to the original sketch.
func (s *Service) RefineLineArt(ctx context.Context, img *gemini.DataURI) (*gemini.DataURI, error) {
	key := redis.ArtifactKey("lineart", img.Data)
	if cached, err := s.cache.Get(ctx, key); err == nil {
		if parsed, err := gemini.ParseDataURI(cached); err == nil {
			return parsed, nil
		}
	}

	reply, err := s.generate(ctx, gemini.Payload{
		Text:      refineInstruction,
		Image:     img,
		WantImage: true,
	})
	if err != nil {
		return nil, err
	}
	if reply.Image == nil {
		return nil, nil
	}
	if err := s.cache.Set(ctx, key, reply.Image.String(), redis.ArtifactTTL); err != nil {
		s.logger.Debug("artifact cache write skipped", zap.Error(err))
	}
	return reply.Image, nil
}

// RenderVisualization produces a photorealistic render of the sketch
// guided by the scene prompt. resolution is passed through to the
// image model ("1K", "2K", "4K").
func (s *Service) RenderVisualization(ctx context.Context, img *gemini.DataURI, prompt, resolution string) (*gemini.DataURI, error) {
	reply, err := s.generate(ctx, gemini.Payload{
		Text:        renderPreamble + prompt,
		Image:       img,
		WantImage:   true,
		AspectRatio: "16:9",
		Resolution:  resolution,
	})
	if err != nil {
		return nil, err
	}
	if reply.Image == nil {
		return nil, nil
	}
	return reply.Image, nil
}

// GenerateModel reconstructs the drawing as a primitive scene. The
// request pins a response schema so the reply decodes directly.
func (s *Service) GenerateModel(ctx context.Context, img *gemini.DataURI, description string) (*scene.Scene, error) {
	text := modelInstruction
	if description != "" {
		text += "\n\nDesign notes: " + description
	}
	reply, err := s.generate(ctx, gemini.Payload{
		Text:           text,
		Image:          img,
		ResponseSchema: scene.ResponseSchema(),
	})
	if err != nil {
		return nil, err
	}
	built, err := scene.Build([]byte(codeblock.FirstCode(reply.Text)))
	if err != nil {
		return nil, err
	}
	return built, nil
}

// ExportDXF converts an SVG plan into DXF via the text model, stripping
// any code fence around the reply. Cached by plan hash.
func (s *Service) ExportDXF(ctx context.Context, svg string) (string, error) {
	key := redis.ArtifactKey("dxf", []byte(svg))
	if cached, err := s.cache.Get(ctx, key); err == nil && cached != "" {
		return cached, nil
	}

	reply, err := s.generate(ctx, gemini.Payload{
		System:         systemInstruction,
		Text:           dxfInstruction + svg,
		ThinkingBudget: s.thinkingBudget,
	})
	if err != nil {
		return "", err
	}
	dxf := codeblock.FirstCode(reply.Text)
	if dxf == "" {
		return "", &gemini.Error{Kind: gemini.KindMalformedResponse, Message: "empty DXF reply"}
	}
	if err := s.cache.Set(ctx, key, dxf, redis.ArtifactTTL); err != nil {
		s.logger.Debug("artifact cache write skipped", zap.Error(err))
	}
	return dxf, nil
}
