package content

import "github.com/mindmarks/mindmarks-go/internal/models"

func heading(level int, text string) models.Block {
	return models.Block{
		Type:    "heading",
		Props:   map[string]any{"level": level},
		Content: text,
	}
}

func paragraph(text string) models.Block {
	return models.Block{Type: "paragraph", Content: text}
}

func bulletItem(text string) models.Block {
	return models.Block{Type: "bulletListItem", Content: text}
}

func checkItem(text string) models.Block {
	return models.Block{
		Type:    "checkListItem",
		Props:   map[string]any{"checked": false},
		Content: text,
	}
}

// DefaultContent returns the starter document skeleton for a new piece of
// content. Each type gets its own structure; the block editor fills in
// the rest.
func DefaultContent(t models.ContentType) []models.Block {
	switch t {
	case models.TypeBook:
		return []models.Block{
			heading(2, "Why I'm reading this"),
			paragraph(""),
			heading(2, "Chapter notes"),
			bulletItem(""),
			heading(2, "Favorite quotes"),
			paragraph(""),
		}
	case models.TypeArticle:
		return []models.Block{
			heading(2, "Summary"),
			paragraph(""),
			heading(2, "Key points"),
			bulletItem(""),
		}
	case models.TypeVideo, models.TypePodcast:
		return []models.Block{
			heading(2, "Timestamps"),
			bulletItem(""),
			heading(2, "Takeaways"),
			bulletItem(""),
		}
	case models.TypeCourse:
		return []models.Block{
			heading(2, "Modules"),
			checkItem(""),
			heading(2, "Notes"),
			paragraph(""),
		}
	default:
		return []models.Block{
			heading(2, "Notes"),
			paragraph(""),
		}
	}
}
