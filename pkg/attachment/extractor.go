package attachment

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrEmptyURL     = errors.New("attachment url is empty")
	ErrUnrecognized = errors.New("attachment url does not contain a file id")
	ErrDuplicate    = errors.New("attachment already added")
)

// File is a reference to a shared document. It only lives in the composition buffer.
type File struct {
	Id        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	Processed bool   `json:"processed"`
}

type pattern struct {
	re   *regexp.Regexp
	last bool
}

// Checked in order; the first one that matches wins.
var patterns = []pattern{
	{re: regexp.MustCompile(`/file/d/([-\w]+)`)},
	{re: regexp.MustCompile(`/(?:document|spreadsheets|presentation)/d/([-\w]+)`)},
	{re: regexp.MustCompile(`[?&]id=([-\w]+)`)},
	{re: regexp.MustCompile(`([-\w]{25,})`), last: true},
}

// ExtractID returns the file identifier embedded in a pasted link.
func ExtractID(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", ErrEmptyURL
	}

	for _, p := range patterns {
		if p.last {
			matches := p.re.FindAllStringSubmatch(rawURL, -1)
			if len(matches) > 0 {
				return matches[len(matches)-1][1], nil
			}
			continue
		}
		if m := p.re.FindStringSubmatch(rawURL); m != nil {
			return m[1], nil
		}
	}
	return "", ErrUnrecognized
}

// Buffer holds the attachments staged for the next turn. Not safe for concurrent use.
type Buffer struct {
	files []File
}

func (b *Buffer) Add(rawURL string) (File, error) {
	id, err := ExtractID(rawURL)
	if err != nil {
		return File{}, err
	}
	for _, f := range b.files {
		if f.Id == id {
			return File{}, ErrDuplicate
		}
	}

	file := File{
		Id:   id,
		Name: fmt.Sprintf("Document %d", len(b.files)+1),
		URL:  strings.TrimSpace(rawURL),
	}
	b.files = append(b.files, file)
	return file, nil
}

// Remove reports whether a file with id was present.
func (b *Buffer) Remove(id string) bool {
	for i, f := range b.files {
		if f.Id == id {
			b.files = append(b.files[:i], b.files[i+1:]...)
			return true
		}
	}
	return false
}

func (b *Buffer) List() []File {
	out := make([]File, len(b.files))
	copy(out, b.files)
	return out
}

func (b *Buffer) Len() int {
	return len(b.files)
}

func (b *Buffer) Clear() {
	b.files = nil
}

// ComposePrompt prefixes text with the referenced documents. With no files the text is returned as is.
func ComposePrompt(files []File, text string) string {
	if len(files) == 0 {
		return text
	}

	var sb strings.Builder
	sb.WriteString("The user has shared the following documents:\n")
	for i, f := range files {
		fmt.Fprintf(&sb, "%d. %s (%s)\n", i+1, f.Name, f.URL)
	}
	sb.WriteString("\nUse these documents as context when they are relevant to the request below.\n\n")
	sb.WriteString("User request: ")
	sb.WriteString(text)
	return sb.String()
}
