package entity

// DocumentChunk is one retrievable slice of an internal document.
type DocumentChunk struct {
	Content  string
	Title    string
	URL      string
	Metadata map[string]interface{}
}
