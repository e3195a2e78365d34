package llm

import (
	"strings"

	"github.com/scandoc/invoice-ocr/constants"
)

// BuildExtractionPrompt composes the fixed instruction asking for a JSON
// object with the recognized invoice keys, followed by the joined OCR text.
// Missing fields are to be left empty rather than invented.
func BuildExtractionPrompt(joinedText string) string {
	var b strings.Builder
	b.WriteString("can you parse this text and give me json format version with these corresponding values: ")
	b.WriteString(strings.Join(constants.FieldKeys, ", "))
	b.WriteString(". If you can't find values of corresponding field then leave it empty. The text is :")
	b.WriteString(joinedText)
	return b.String()
}
