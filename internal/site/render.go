package site

import (
	"bytes"
	"context"
	"html/template"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"freegle/internal/config"
)

var (
	pagesRendered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "freegle_site_pages_rendered_total",
		Help: "Pages rendered by the site, by rendering mode.",
	}, []string{"mode"})
)

var shell = template.Must(template.New("shell").Parse(`<!DOCTYPE html>
<html lang="en-GB">
<head>
<title>{{.Head.Title}}</title>
{{range .Head.Meta}}<meta{{if .Charset}} charset="{{.Charset}}"{{end}}{{if .Name}} name="{{.Name}}"{{end}}{{if .Property}} property="{{.Property}}"{{end}}{{if .Content}} content="{{.Content}}"{{end}}{{if .HID}} data-hid="{{.HID}}"{{end}}>
{{end}}<link rel="modulepreload" href="{{.CDNURL}}/_nuxt/entry.js">
</head>
<body>
<div id="__nuxt" data-mode="{{.Mode}}" data-path="{{.Path}}"></div>
<script>window.__NUXT__ = {config: {public: {{.Public}}, app: {cdnURL: {{.CDNURL}}}}};</script>
<script type="module" src="{{.CDNURL}}/_nuxt/entry.js"></script>
</body>
</html>
`))

// Override replaces parts of the default head for a single page.
type Override struct {
	Title string
	Meta  []Meta
}

// Resolver builds the head override of a path. It returns nil when the path is not its concern.
type Resolver func(ctx context.Context, path string) (*Override, error)

type shellData struct {
	Head   Head
	Mode   Mode
	Path   string
	CDNURL string
	Public *config.Public
}

// Renderer produces page documents: the head is rendered on the server, the body is left to the client.
type Renderer struct {
	logger    *slog.Logger
	head      Head
	public    *config.Public
	resolvers []Resolver
}

func NewRenderer(logger *slog.Logger, head Head, public *config.Public, resolvers ...Resolver) *Renderer {
	return &Renderer{
		logger:    logger,
		head:      head.Expand(public.Vars()).With(""),
		public:    public,
		resolvers: resolvers,
	}
}

// Render renders path in the given mode. Client-only pages get the default head, other modes let the
// resolvers override it. Resolver failures fall back to the default head.
func (r *Renderer) Render(ctx context.Context, path string, mode Mode) ([]byte, error) {
	head := r.head

	if mode != ModeClient {
		for _, resolve := range r.resolvers {
			override, err := resolve(ctx, path)
			if err != nil {
				r.logger.Warn("head resolver failed, using defaults", "path", path, "error", err)
				continue
			}
			if override != nil {
				head = head.With(override.Title, override.Meta...)
			}
		}
	}

	var buf bytes.Buffer
	err := shell.Execute(&buf, shellData{
		Head:   head,
		Mode:   mode,
		Path:   path,
		CDNURL: r.public.CDNURL(),
		Public: r.public,
	})
	if err != nil {
		return nil, err
	}

	pagesRendered.WithLabelValues(string(mode)).Inc()

	return buf.Bytes(), nil
}
