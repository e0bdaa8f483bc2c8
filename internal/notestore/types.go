package notestore

// ItemType is the kind of item a search is restricted to.
type ItemType string

const (
	TypeFolder   ItemType = "folder"
	TypeNote     ItemType = "note"
	TypeTag      ItemType = "tag"
	TypeResource ItemType = "resource"
)

// Item is a folder, note or tag as returned by the note store.
type Item struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ParentID string `json:"parent_id,omitempty"`
}

// Resource is a stored binary attachment.
type Resource struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Size  int64  `json:"size"`
	// Reused is set when an existing resource was returned instead of uploading.
	Reused bool `json:"-"`
}

type searchPage struct {
	Items   []Item `json:"items"`
	HasMore bool   `json:"has_more"`
}

type errorBody struct {
	Error string `json:"error"`
}
