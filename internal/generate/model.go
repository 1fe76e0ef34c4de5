package generate

import "os"

// Gemini Model IDs
//
// | Model Name                  | API Model ID                | Use Case                      |
// |-----------------------------|---------------------------  |-------------------------------|
// | Gemini 3 Pro Image          | gemini-3-pro-image-preview  | Advanced image generation     |
// | Gemini 2.5 Flash Image      | gemini-2.5-flash-image      | Fast image generation         |
// | Gemini 3 Flash (Preview)    | gemini-3-flash-preview      | Text, validation calls        |
const (
	// ModelGemini3ProImage is for advanced image generation/edit.
	ModelGemini3ProImage = "gemini-3-pro-image-preview"

	// ModelGemini25FlashImage is the faster, cheaper image model.
	ModelGemini25FlashImage = "gemini-2.5-flash-image"

	// ModelGemini3FlashPreview is the text model used for key validation.
	ModelGemini3FlashPreview = "gemini-3-flash-preview"
)

// DefaultModelName is the default image generation model.
// Can be overridden via GEMINI_MODEL environment variable.
const DefaultModelName = ModelGemini3ProImage

// GetModelName returns the image model to use, resolved from:
//  1. GEMINI_MODEL environment variable (if set)
//  2. Default: gemini-3-pro-image-preview
func GetModelName() string {
	if env := os.Getenv("GEMINI_MODEL"); env != "" {
		return env
	}
	return DefaultModelName
}
