package render

import (
	"html/template"
	"strings"

	"kitlab/internal/kit"
)

// ClarificationIntro introduces the follow-up question list.
const ClarificationIntro = "I need a few more details:"

// ProductImageFallback replaces an image that fails to load in the browser.
const ProductImageFallback = "https://via.placeholder.com/150?text=Product+Image"

var htmlTemplates = template.Must(template.New("root").Parse(`
{{define "message"}}<div class="d-flex mb-4 pop-animation {{if .User}}justify-content-end{{else}}justify-content-start{{end}}">
<div class="p-3 shadow-sm {{if .User}}msg-user{{else}}msg-ai{{end}}" style="max-width: 75%;">{{.Content}}</div>
</div>{{end}}

{{define "clarification"}}{{.Intro}}<ul>{{range .Questions}}<li>{{.}}</li>{{end}}</ul>{{end}}

{{define "kit"}}<div class="kit">{{range .Sections}}
<div class="mt-4 mb-2"><h6 class="text-uppercase fw-bold text-muted small px-2">{{.Name}}</h6></div>
<div class="card border-0 shadow-sm mb-4 pop-animation ai-kit-grid" style="max-width: 90%;">
<div class="card-body p-4"><div class="row g-3">{{range .Items}}
<div class="col-6 col-md-4 mb-4">
<div class="p-3 border rounded-4 bg-white h-100 d-flex flex-column shadow-sm transition-hover">
<div class="text-center mb-3" style="height: 120px; overflow: hidden;">
<img src="{{.ImageURL}}" class="img-fluid h-100" style="object-fit: contain;" data-fallback="{{$.ImageFallback}}">
</div>
<span class="fw-bold smallest d-block mb-1 text-truncate" title="{{.Name}}">{{.Name}}</span>
<p class="text-muted smallest mb-2 text-truncate-2">{{.Description}}</p>
<div class="mt-auto d-flex justify-content-between align-items-center pt-2 border-top">
<span class="fw-bold small text-primary">{{.Price}}</span>
<a href="{{.BuyURL}}" target="_blank" class="btn btn-sm btn-dark rounded-circle shadow-sm"><i class="bi bi-arrow-up-right"></i></a>
</div>
</div>
</div>{{end}}
</div></div>
</div>{{end}}
</div>{{end}}

{{define "comparison"}}<div class="card border-0 shadow-sm mb-4 pop-animation comparison-card" style="max-width: 90%;">
<div class="card-body p-4">
<div class="d-flex justify-content-between align-items-center mb-2">
<h5 class="fw-bold mb-0">{{.Name}}</h5>
<span class="badge bg-primary">{{.Price}}</span>
</div>
<p class="text-muted small">{{.Description}}</p>
<div class="row">
<div class="col-6"><h6 class="text-success small fw-bold">Pros</h6><ul class="pros">{{range .Pros}}<li>{{.}}</li>{{end}}</ul></div>
<div class="col-6"><h6 class="text-danger small fw-bold">Cons</h6><ul class="cons">{{range .Cons}}<li>{{.}}</li>{{end}}</ul></div>
</div>
<a href="{{.BuyURL}}" target="_blank" class="btn btn-dark btn-sm mt-2">Buy</a>
</div>
</div>{{end}}
`))

// HTMLFormatter renders artifacts as browser markup.
type HTMLFormatter struct{}

// Message renders a chat bubble. Alignment and tint follow the role.
func (HTMLFormatter) Message(role kit.Role, markup string) string {
	return execute("message", struct {
		User    bool
		Content template.HTML
	}{role == kit.RoleUser, template.HTML(markup)})
}

// Clarification renders the question list inside an ai bubble.
func (f HTMLFormatter) Clarification(questions []string) string {
	inner := execute("clarification", struct {
		Intro     string
		Questions []string
	}{ClarificationIntro, questions})
	return f.Message(kit.RoleAI, inner)
}

type sectionView struct {
	Name  string
	Items []kit.Item
}

// Kit renders every section header and its tile grid as one artifact.
func (HTMLFormatter) Kit(k kit.FinalKit) string {
	return execute("kit", struct {
		Sections      []sectionView
		ImageFallback string
	}{sectionViews(k), ProductImageFallback})
}

// Comparison renders a single comparison card.
func (HTMLFormatter) Comparison(c kit.Comparison) string {
	return execute("comparison", struct {
		Name, Price, Description, BuyURL string
		Pros, Cons                       []string
	}{
		Name:        c.Name,
		Price:       kit.NormalizePrice(c.Price),
		Description: c.Description,
		BuyURL:      kit.LinkURL(kit.RawItem{BuyURL: c.BuyURL}),
		Pros:        c.Pros,
		Cons:        c.Cons,
	})
}

func sectionViews(k kit.FinalKit) []sectionView {
	views := make([]sectionView, 0, len(k.Sections))
	for _, s := range k.Sections {
		v := sectionView{Name: s.Name, Items: make([]kit.Item, 0, len(s.Items))}
		for _, raw := range s.Items {
			v.Items = append(v.Items, kit.NormalizeItem(raw))
		}
		views = append(views, v)
	}
	return views
}

func execute(name string, data interface{}) string {
	var sb strings.Builder
	if err := htmlTemplates.ExecuteTemplate(&sb, name, data); err != nil {
		// Templates are static; a failure here means a programming error.
		return template.HTMLEscapeString(err.Error())
	}
	return sb.String()
}
