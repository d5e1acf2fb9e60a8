package http

import (
	"bytes"
	"html/template"
	"os"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"
)

// OpenAPIPath is where the API description is read from, relative to the
// working directory of the server.
var OpenAPIPath = "api/openapi.yaml"

const defaultDocsTitle = "Perspectives Globe API"

// The globe client mostly uses the camera socket, which Swagger cannot
// exercise, so the page points at it next to the REST reference.
var docsPage = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>{{.Title}} {{.Version}}</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
  <style>body{margin:0;background:#0b1220}.note{font:14px sans-serif;color:#9fd8e6;padding:12px 24px}#swagger-ui{background:#fafafa}</style>
</head>
<body>
  <p class="note">Camera sessions stream over <code>/ws</code>: send <code>{"type":"view"}</code> to mount the globe, then <code>{"type":"interaction"}</code> events.</p>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: '/docs/openapi.json',
      dom_id: '#swagger-ui',
      deepLinking: true,
      docExpansion: 'list',
      defaultModelsExpandDepth: 0,
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout',
    });
  </script>
</body>
</html>`))

// loadAPIDoc reads and parses the OpenAPI document from OpenAPIPath.
func loadAPIDoc() ([]byte, *openapi3.T, error) {
	data, err := os.ReadFile(OpenAPIPath)
	if err != nil {
		return nil, nil, err
	}
	doc, err := openapi3.NewLoader().LoadFromData(data)
	if err != nil {
		return nil, nil, err
	}
	return data, doc, nil
}

// SetupDocs registers Swagger UI at /docs and the API description as YAML
// and JSON under /docs/openapi.*.
func SetupDocs(app *fiber.App) {
	app.Get("/docs", func(c *fiber.Ctx) error {
		page := struct{ Title, Version string }{Title: defaultDocsTitle}
		if _, doc, err := loadAPIDoc(); err == nil && doc.Info != nil {
			page.Title, page.Version = doc.Info.Title, doc.Info.Version
		}
		var buf bytes.Buffer
		if err := docsPage.Execute(&buf, page); err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.Send(buf.Bytes())
	})

	app.Get("/docs/openapi.yaml", func(c *fiber.Ctx) error {
		data, err := os.ReadFile(OpenAPIPath)
		if err != nil {
			return errNotFound(c, "openapi.yaml not found")
		}
		c.Set(fiber.HeaderContentType, "application/yaml")
		return c.Send(data)
	})

	app.Get("/docs/openapi.json", func(c *fiber.Ctx) error {
		_, doc, err := loadAPIDoc()
		if err != nil {
			return errNotFound(c, "openapi document not available")
		}
		return c.JSON(doc)
	})
}
