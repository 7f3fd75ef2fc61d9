package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"genai-studio/internal/imagefile"

	"google.golang.org/genai"
)

type fakeModels struct {
	imagesResp  *genai.GenerateImagesResponse
	contentResp *genai.GenerateContentResponse
	err         error

	gotModel    string
	gotPrompt   string
	gotImages   *genai.GenerateImagesConfig
	gotContents []*genai.Content
	gotContent  *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateImages(ctx context.Context, model string, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	f.gotModel, f.gotPrompt, f.gotImages = model, prompt, config
	return f.imagesResp, f.err
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.gotModel, f.gotContents, f.gotContent = model, contents, config
	return f.contentResp, f.err
}

type fakeArchiver struct {
	data     []byte
	mimeType string
	err      error
}

func (f *fakeArchiver) Archive(ctx context.Context, data []byte, mimeType string) (string, error) {
	f.data, f.mimeType = data, mimeType
	if f.err != nil {
		return "", f.err
	}
	return "https://bucket.example.com/images/x.png", nil
}

func contentWithParts(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
	}
}

func TestGenerateImageFixedPolicy(t *testing.T) {
	models := &fakeModels{imagesResp: &genai.GenerateImagesResponse{
		GeneratedImages: []*genai.GeneratedImage{{Image: &genai.Image{ImageBytes: []byte("img")}}},
	}}
	c := newClient(models, Config{})

	ref, err := c.GenerateImage(context.Background(), "a red fox")
	if err != nil {
		t.Fatalf("GenerateImage() error = %v", err)
	}
	if want := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("img")); ref != want {
		t.Fatalf("GenerateImage() = %q, want %q", ref, want)
	}
	if models.gotModel != defaultGenerateModel || models.gotPrompt != "a red fox" {
		t.Fatalf("unexpected call: model=%q prompt=%q", models.gotModel, models.gotPrompt)
	}
	cfg := models.gotImages
	if cfg.NumberOfImages != 1 || cfg.OutputMIMEType != "image/png" || cfg.AspectRatio != "1:1" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestGenerateImageFailures(t *testing.T) {
	tests := []struct {
		name   string
		models *fakeModels
	}{
		{name: "transport error", models: &fakeModels{err: errors.New("503")}},
		{name: "nil response", models: &fakeModels{}},
		{name: "zero images", models: &fakeModels{imagesResp: &genai.GenerateImagesResponse{}}},
		{name: "empty bytes", models: &fakeModels{imagesResp: &genai.GenerateImagesResponse{
			GeneratedImages: []*genai.GeneratedImage{{Image: &genai.Image{}}},
		}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newClient(tc.models, Config{}).GenerateImage(context.Background(), "p")
			if !errors.Is(err, ErrGeneration) {
				t.Fatalf("GenerateImage() error = %v, want ErrGeneration", err)
			}
		})
	}
}

func TestEditImageRequestShape(t *testing.T) {
	models := &fakeModels{contentResp: contentWithParts(
		genai.NewPartFromText("here you go"),
		&genai.Part{InlineData: &genai.Blob{Data: []byte("first"), MIMEType: "image/jpeg"}},
		&genai.Part{InlineData: &genai.Blob{Data: []byte("second"), MIMEType: "image/png"}},
	)}
	c := newClient(models, Config{EditModelName: "edit-model"})
	src := imagefile.EncodedImage{
		Data:      base64.StdEncoding.EncodeToString([]byte("source")),
		MediaType: "image/webp",
	}

	ref, err := c.EditImage(context.Background(), "add a hat", src)
	if err != nil {
		t.Fatalf("EditImage() error = %v", err)
	}
	if want := imagefile.DataURL("image/jpeg", []byte("first")); ref != want {
		t.Fatalf("EditImage() = %q, want %q", ref, want)
	}
	if models.gotModel != "edit-model" {
		t.Fatalf("model = %q", models.gotModel)
	}
	if len(models.gotContents) != 1 {
		t.Fatalf("contents length = %d, want 1", len(models.gotContents))
	}
	parts := models.gotContents[0].Parts
	if len(parts) != 2 {
		t.Fatalf("parts length = %d, want 2", len(parts))
	}
	if parts[0].InlineData == nil || string(parts[0].InlineData.Data) != "source" || parts[0].InlineData.MIMEType != "image/webp" {
		t.Fatalf("first part is not the source image: %+v", parts[0])
	}
	if parts[1].Text != "add a hat" {
		t.Fatalf("second part text = %q", parts[1].Text)
	}
	mods := models.gotContent.ResponseModalities
	if len(mods) != 1 || mods[0] != "IMAGE" {
		t.Fatalf("ResponseModalities = %v", mods)
	}
}

func TestEditImageDefaultsToPNGWhenTypeMissing(t *testing.T) {
	models := &fakeModels{contentResp: contentWithParts(
		&genai.Part{InlineData: &genai.Blob{Data: []byte("out")}},
	)}
	src := imagefile.EncodedImage{Data: base64.StdEncoding.EncodeToString([]byte("s")), MediaType: "image/png"}

	ref, err := newClient(models, Config{}).EditImage(context.Background(), "p", src)
	if err != nil {
		t.Fatalf("EditImage() error = %v", err)
	}
	if want := imagefile.DataURL("image/png", []byte("out")); ref != want {
		t.Fatalf("EditImage() = %q, want %q", ref, want)
	}
}

func TestEditImageFailures(t *testing.T) {
	validSrc := imagefile.EncodedImage{Data: base64.StdEncoding.EncodeToString([]byte("s")), MediaType: "image/png"}
	tests := []struct {
		name   string
		models *fakeModels
		src    imagefile.EncodedImage
	}{
		{name: "transport error", models: &fakeModels{err: errors.New("quota")}, src: validSrc},
		{name: "no candidates", models: &fakeModels{contentResp: &genai.GenerateContentResponse{}}, src: validSrc},
		{name: "text only", models: &fakeModels{contentResp: contentWithParts(genai.NewPartFromText("sorry"))}, src: validSrc},
		{name: "bad source payload", models: &fakeModels{}, src: imagefile.EncodedImage{Data: "***", MediaType: "image/png"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newClient(tc.models, Config{}).EditImage(context.Background(), "p", tc.src)
			if !errors.Is(err, ErrEdit) {
				t.Fatalf("EditImage() error = %v, want ErrEdit", err)
			}
		})
	}
}

func TestArchivedResult(t *testing.T) {
	archiver := &fakeArchiver{}
	models := &fakeModels{imagesResp: &genai.GenerateImagesResponse{
		GeneratedImages: []*genai.GeneratedImage{{Image: &genai.Image{ImageBytes: []byte("img")}}},
	}}
	ref, err := newClient(models, Config{Archiver: archiver}).GenerateImage(context.Background(), "p")
	if err != nil {
		t.Fatalf("GenerateImage() error = %v", err)
	}
	if ref != "https://bucket.example.com/images/x.png" {
		t.Fatalf("GenerateImage() = %q", ref)
	}
	if string(archiver.data) != "img" || archiver.mimeType != "image/png" {
		t.Fatalf("archiver got %q %q", archiver.data, archiver.mimeType)
	}

	archiver.err = errors.New("bucket missing")
	if _, err := newClient(models, Config{Archiver: archiver}).GenerateImage(context.Background(), "p"); !errors.Is(err, ErrGeneration) {
		t.Fatalf("GenerateImage() error = %v, want ErrGeneration", err)
	}
}
