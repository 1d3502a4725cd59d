package augment

const ocrPrompt = "Extract all text from this image."

const analyzePrompt = "Analyze the following code snippet. Identify the programming language and determine if it contains sensitive information like API keys or passwords. Respond in JSON format. Code: \n\n%s"

const formatPrompt = "Format/beautify the following %s code snippet:\n\n%s"

const translatePrompt = "Translate the following text to %s:\n\n%s"

var analysisSchema = &Schema{
	Properties: []Property{
		{Name: "language", Kind: KindString},
		{Name: "isSensitive", Kind: KindBoolean},
	},
}
