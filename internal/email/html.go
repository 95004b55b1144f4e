package email

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

// markdown converts message bodies to HTML. Hard wraps turn single
// newlines into <br> so template authors get the line breaks they see.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
		htmlrenderer.WithUnsafe(),
	),
)

// MarkdownToHTML renders a Markdown message body to HTML.
func MarkdownToHTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}
	return buf.String(), nil
}

// WrapHTML wraps body HTML in a complete document with inline,
// email-client-safe styling. No external resources are referenced.
func WrapHTML(body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <meta http-equiv="X-UA-Compatible" content="IE=edge">
    <title>Email</title>
    <style>
        body { margin: 0; padding: 20px; font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        h1, h2, h3, h4, h5, h6 { color: #333; margin-bottom: 10px; }
        p { margin-bottom: 15px; }
        strong, b { font-weight: bold; }
        em, i { font-style: italic; }
        ul, ol { margin-bottom: 15px; padding-left: 20px; }
        li { margin-bottom: 5px; }
        table { border-collapse: collapse; width: 100%%; margin-bottom: 15px; }
        td, th { padding: 8px; border: 1px solid #ddd; text-align: left; }
        th { background-color: #f2f2f2; font-weight: bold; }
        img { max-width: 100%%; height: auto; }
        a { color: #007cba; }
    </style>
</head>
<body>
    %s
</body>
</html>`, body)
}
