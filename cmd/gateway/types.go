package main

// Downstream payloads as the gateway sees them.

type post struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type postList struct {
	Posts      []post `json:"posts"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	TotalPages int    `json:"total_pages"`
}

type postInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Token   string `json:"token"`
}

type deleteResult struct {
	Message string `json:"message"`
	Title   string `json:"title"`
}

type comment struct {
	ID      int64  `json:"id"`
	PostID  int64  `json:"post_id"`
	Content string `json:"content"`
	Author  string `json:"author"`
}

type commentList struct {
	Comments   []comment `json:"comments"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	TotalPages int       `json:"total_pages"`
}

type commentInput struct {
	PostID  int64  `json:"post_id"`
	Content string `json:"content"`
	Token   string `json:"token"`
}

type tokenBody struct {
	Token string `json:"token"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResult struct {
	Token string `json:"token"`
}
