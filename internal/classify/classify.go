package classify

import (
	"path/filepath"
	"strings"
)

// Category is the destination bucket of a file.
type Category int

const (
	Other Category = iota
	Image
	Audio
	Video
	Document
	Archive
)

func (c Category) String() string {
	switch c {
	case Image:
		return "image"
	case Audio:
		return "audio"
	case Video:
		return "video"
	case Document:
		return "document"
	case Archive:
		return "archive"
	default:
		return "other"
	}
}

// Folder is the top-level directory the category sorts into.
func (c Category) Folder() string {
	switch c {
	case Image:
		return "images"
	case Audio:
		return "audio"
	case Video:
		return "video"
	case Document:
		return "documents"
	case Archive:
		return "archives"
	default:
		return "other"
	}
}

var categories = []Category{Image, Audio, Video, Document, Archive, Other}

// FolderCategory maps a category folder name back to its category.
func FolderCategory(name string) (Category, bool) {
	for _, c := range categories {
		if c.Folder() == name {
			return c, true
		}
	}
	return Other, false
}

// Classification is the category of a file plus its uppercased extension.
type Classification struct {
	Category Category
	TypeTag  string
}

// Dir returns the folder under root a file with this classification moves to.
// Archives and unclassified files are not split by type.
func (c Classification) Dir(root string) string {
	switch c.Category {
	case Archive, Other:
		return filepath.Join(root, c.Category.Folder())
	}
	if c.TypeTag == "" {
		return filepath.Join(root, c.Category.Folder())
	}
	return filepath.Join(root, c.Category.Folder(), c.TypeTag)
}

// Classify maps a file name to its category using the suffix only.
func Classify(name string) Classification {
	ext := Ext(name)
	return Classification{
		Category: byExtension(strings.ToLower(ext)),
		TypeTag:  strings.ToUpper(ext),
	}
}

// Ext returns the extension of name without the leading dot, keeping its
// case. A dot file such as ".bashrc" has no extension.
func Ext(name string) string {
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	if ext == base {
		return ""
	}
	return strings.TrimPrefix(ext, ".")
}

func byExtension(ext string) Category {
	switch ext {
	case "jpg", "jpeg", "png", "bmp", "gif", "svg":
		return Image
	case "mp3", "wav", "ogg", "flac", "aac", "wma", "m4a", "amr":
		return Audio
	case "avi", "mpg", "mpeg", "mkv", "mov", "flv", "wmv", "mp4", "webm":
		return Video
	case "doc", "docx", "xls", "xlsx", "ppt", "pptx", "pdf", "txt", "rtf":
		return Document
	case "zip", "tar", "gz", "tgz", "zst":
		return Archive
	default:
		return Other
	}
}
