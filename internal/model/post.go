package model

// Post is a content record supplied by the content source. The checker never mutates it.
type Post struct {
	ID          string `json:"id" bson:"id"`
	Title       string `json:"title" bson:"title"`
	ContentHTML string `json:"content_html" bson:"content_html"`
}

// LinkTarget is one distinct hyperlink discovered in a post
type LinkTarget struct {
	URL             string `json:"url"`
	SourcePostID    string `json:"source_post_id"`
	SourcePostTitle string `json:"source_post_title"`
}
