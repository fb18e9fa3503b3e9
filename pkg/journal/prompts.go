package journal

const (
	// analysisInstruction frames the entry for the analysis completion.
	analysisInstruction = "You are dreaming about"

	// analysisMaxTokens bounds the analysis completion length.
	analysisMaxTokens = 333

	// summaryInstruction condenses an entry into an image generation prompt.
	summaryInstruction = "Please summarize the following text to be used as the perfect AI image generation prompt:"

	// summaryMaxTokens bounds the prompt summary length.
	summaryMaxTokens = 60

	// imageStyleSuffix is appended to every image prompt.
	imageStyleSuffix = ", high quality, digital art, photorealistic style, very detailed, lucid dream themed"

	// imageCount is the number of images requested per illustration.
	imageCount = 1

	// DefaultImageSize is the square size requested from the image generator.
	DefaultImageSize = "512x512"

	// DefaultSearchLimit caps similarity search results.
	DefaultSearchLimit = 5
)
