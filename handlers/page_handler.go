package handlers

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"linkFlowAPI/internal/store"
	"linkFlowAPI/internal/types/item"
	"linkFlowAPI/internal/types/profile"
	"linkFlowAPI/services"
)

// PageHandler server-renders the public profile page: the owner's
// name, bio and photo, and every canvas item placed at its stored
// position and size. Later items paint later, matching the editor's
// paint order.
type PageHandler struct {
	userService *services.UserService
	tmpl        *template.Template
}

func NewPageHandler(userService *services.UserService) *PageHandler {
	return &PageHandler{
		userService: userService,
		tmpl:        template.Must(template.New("profile").Parse(profilePageTemplate)),
	}
}

type pageItem struct {
	IsText     bool
	Content    string
	URL        string
	Meta       *item.LinkMetadata
	X, Y       float64
	Width      float64
	Height     float64
	FontSize   int
	Font       template.CSS
	Color      template.CSS
	Background template.CSS
}

type pageData struct {
	Profile profile.PublicProfile
	Items   []pageItem
}

// RenderProfile serves GET /u/{username}.
func (h *PageHandler) RenderProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	username := mux.Vars(r)["username"]

	p, err := h.userService.GetByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, notFoundPage, template.HTMLEscapeString(username))
		return
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load profile")
		return
	}

	data := pageData{Profile: p.Public()}
	for _, it := range p.Items {
		pi := pageItem{
			IsText:   it.Type == item.ItemTypeText,
			Content:  it.Content,
			X:        it.Position.X,
			Y:        it.Position.Y,
			Width:    it.Size.Width,
			Height:   it.Size.Height,
			FontSize: it.FontSize,
			// Style values come from the profile owner, not the viewer.
			Font:       template.CSS(it.Font),
			Color:      template.CSS(it.Color),
			Background: template.CSS(it.BackgroundColor),
		}
		if pi.FontSize <= 0 {
			pi.FontSize = 16
		}
		if it.Type == item.ItemTypeLink {
			pi.URL = it.Content
			pi.Meta = it.Metadata
		}
		data.Items = append(data.Items, pi)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.Execute(w, data); err != nil {
		log.Printf("PageHandler: failed to render profile %s: %v", username, err)
	}
}

const notFoundPage = `<!DOCTYPE html>
<html>
<head><title>Not found</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4rem;">
    <h1>@%s</h1>
    <p>This page hasn't been claimed yet.</p>
</body>
</html>`

const profilePageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Profile.FirstName}} {{.Profile.LastName}} (@{{.Profile.Username}})</title>
<style>
body { margin: 0; font-family: Arial, sans-serif; background: #f8f5ff; color: #222; }
.header { text-align: center; padding: 2rem 1rem 1rem; }
.header img { width: 120px; height: 120px; border-radius: 50%; object-fit: cover; }
.header h1 { margin: 0.5rem 0 0; font-size: 1.4rem; }
.header p { margin: 0.25rem 0; color: #666; }
.canvas { position: relative; max-width: 960px; min-height: 600px; margin: 0 auto; }
.card { position: absolute; border-radius: 8px; padding: 12px; overflow: hidden; box-sizing: border-box; }
.card h3 { margin: 0; color: #fff; }
.card p { margin: 4px 0 0; font-size: 0.875em; color: #ddd; }
.card img { width: 100%; max-height: 60%; object-fit: cover; border-radius: 4px; margin-top: 8px; }
.card a { display: block; margin-top: 8px; font-size: 0.875em; color: #60a5fa; word-break: break-all; }
</style>
</head>
<body>
<div class="header">
{{if .Profile.PhotoURL}}<img src="{{.Profile.PhotoURL}}" alt="{{.Profile.Username}}">{{end}}
<h1>{{.Profile.FirstName}} {{.Profile.LastName}}</h1>
{{if .Profile.Caption}}<p>{{.Profile.Caption}}</p>{{end}}
{{if .Profile.Bio}}<p>{{.Profile.Bio}}</p>{{end}}
</div>
<div class="canvas">
{{range .Items}}
<div class="card" style="left: {{.X}}px; top: {{.Y}}px; width: {{.Width}}px; height: {{.Height}}px; background: {{.Background}};">
{{if .IsText}}
<div style="font-family: {{.Font}}; color: {{.Color}}; font-size: {{.FontSize}}px;">{{.Content}}</div>
{{else}}
{{with .Meta}}<h3>{{.Title}}</h3>{{if .Description}}<p>{{.Description}}</p>{{end}}{{if .Image}}<img src="{{.Image}}" alt="">{{end}}{{end}}
<a href="{{.URL}}" target="_blank" rel="noopener noreferrer">{{.URL}}</a>
{{end}}
</div>
{{end}}
</div>
</body>
</html>`
