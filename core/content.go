package core

// ContentPart is one element of a multipart message.
type ContentPart interface {
	// ContentType returns the wire type identifier for this part.
	ContentType() string
}

// ImageDetail specifies the level of detail for image processing.
type ImageDetail string

const (
	ImageDetailAuto ImageDetail = "auto"
	ImageDetailLow  ImageDetail = "low"
	ImageDetailHigh ImageDetail = "high"
)

// TextPart is plain text inside a multipart message.
type TextPart struct {
	Text string
}

// ContentType returns "text".
func (TextPart) ContentType() string { return "text" }

// ImagePart references an image by HTTPS URL or data URL (data:image/png;base64,...).
type ImagePart struct {
	URL    string
	Detail ImageDetail
}

// ContentType returns "image_url".
func (ImagePart) ContentType() string { return "image_url" }

// AudioPart carries base64-encoded audio.
type AudioPart struct {
	Data   string
	Format string // "wav" or "mp3"
}

// ContentType returns "input_audio".
func (AudioPart) ContentType() string { return "input_audio" }

// FilePart references an uploaded file or carries base64 file data.
type FilePart struct {
	FileID   string
	FileData string
	Filename string
}

// ContentType returns "file".
func (FilePart) ContentType() string { return "file" }

// TextOf concatenates the text parts of a message, or returns Content for plain messages.
func TextOf(m Message) string {
	if !m.IsMultipart() {
		return m.Content
	}
	var out string
	for _, p := range m.Parts {
		switch t := p.(type) {
		case TextPart:
			out += t.Text
		case *TextPart:
			out += t.Text
		}
	}
	return out
}
