package server

import (
	"html/template"
	"net/http"

	"github.com/vango-dev/livehooks/pkg/store"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="csrf-token" content="{{.Token}}">
<title>livehooks</title>
</head>
<body>
{{if .Flash}}<div id="flash" class="alert alert-info" role="alert" phx-hook="Flash" phx-click="lv:clear-flash" phx-value-key="info">{{.Flash}}</div>
{{end}}<form id="order" phx-change="reorder">
<ul id="items" phx-hook="Sortable">
{{range .Items}}<li id="item-{{.ID}}"><input type="hidden" name="ids[]" value="{{.ID}}">{{.Label}}</li>
{{end}}</ul>
</form>
</body>
</html>
`))

type pageData struct {
	Token string
	Flash string
	Items []store.Item
}

func (s *Server) pageHandler(w http.ResponseWriter, r *http.Request) {
	items, err := s.config.Store.Items(r.Context())
	if err != nil {
		s.logger.Error("load items failed", "error", err)
		http.Error(w, "store unavailable", http.StatusInternalServerError)
		return
	}

	token := s.GenerateCSRFToken()
	s.setCSRFCookie(w, r, token)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := pageTemplate.Execute(w, pageData{Token: token, Flash: s.config.Flash, Items: items}); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}
