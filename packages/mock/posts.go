package mock

import (
	"fmt"
	"strings"
)

type Post struct {
	UserID int    `json:"userId"`
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

const (
	// DefaultPostCount mirrors the public dataset: 100 posts, 10 per user.
	DefaultPostCount = 100
	PostsPerUser     = 10

	FirstPostTitle = "sunt aut facere repellat provident occaecati excepturi optio reprehenderit"
	FirstPostBody  = "quia et suscipit\nsuscipit recusandae consequuntur expedita et cum\nreprehenderit molestiae ut ut quas totam\nnostrum rerum est autem sunt rem eveniet architecto"
)

var words = []string{
	"lorem", "ipsum", "dolor", "sit", "amet", "consectetur", "adipisci",
	"velit", "sed", "quia", "non", "numquam", "eius", "modi", "tempora",
	"incidunt", "ut", "labore", "et", "dolore", "magnam", "aliquam",
	"quaerat", "voluptatem", "enim", "ad", "minima", "veniam", "quis",
	"nostrum", "exercitationem", "ullam",
}

// DefaultPosts returns a fresh copy of the built-in dataset. Post 1 carries
// the well-known title and body; the rest are deterministic filler.
func DefaultPosts() []Post {
	posts := make([]Post, 0, DefaultPostCount)
	for id := 1; id <= DefaultPostCount; id++ {
		p := Post{
			UserID: (id-1)/PostsPerUser + 1,
			ID:     id,
			Title:  phrase(id, 6),
			Body:   strings.Join([]string{phrase(id*3, 8), phrase(id*5, 7), phrase(id*7, 9)}, "\n"),
		}
		if id == 1 {
			p.Title = FirstPostTitle
			p.Body = FirstPostBody
		}
		posts = append(posts, p)
	}
	return posts
}

func phrase(seed, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = words[(seed*31+i*17)%len(words)]
	}
	return fmt.Sprintf("%s %d", strings.Join(parts, " "), seed)
}
