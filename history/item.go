package history

import "github.com/google/uuid"

// Placeholders for items that arrive with holes in them, either from an
// older app version's saved data or a server that echoed less than usual.
const (
	UnknownFilename = "Unknown Filename"
	NoTranslation   = "(no translation)"
)

// Item is one translated recording as the screen shows it: the text that
// came back, the filename the server echoed, and the clip it was made from.
type Item struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	Translation string `json:"translation"`
	URI         string `json:"uri"`
}

// NewItem builds a displayable item from an upload result, filling
// placeholders for anything missing.
func NewItem(uri, filename, translation string) Item {
	item := Item{
		ID:          uuid.NewString(),
		Filename:    filename,
		Translation: translation,
		URI:         uri,
	}
	item.normalize()
	return item
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Filename == "" {
		i.Filename = UnknownFilename
	}
	if i.Translation == "" {
		i.Translation = NoTranslation
	}
}
