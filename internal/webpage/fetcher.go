package webpage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/PuerkitoBio/goquery"
	"github.com/lehigh-university-libraries/paper2blog/internal/extract"
	"github.com/lehigh-university-libraries/paper2blog/internal/models"
)

const (
	maxPageBytes  = 10 << 20
	maxImageBytes = 20 << 20
	userAgent     = "paper2blog/1.0 (+https://github.com/lehigh-university-libraries/paper2blog)"
)

// figureMarker stands in for a retained image while the page is converted to
// markdown; it survives conversion without escaping.
func figureMarker(n int) string {
	return fmt.Sprintf("PAPERTOBLOGFIGURE%dMARKER", n)
}

// Fetcher turns a web page into paper text and figures
type Fetcher struct {
	HTTPClient *http.Client
	MaxImages  int
	converter  *converter.Converter
}

// NewFetcher creates a new page fetcher keeping at most maxImages figures
func NewFetcher(maxImages int) *Fetcher {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
	for _, tag := range []string{"nav", "header", "footer", "aside", "form", "button", "svg", "video", "audio", "iframe"} {
		conv.Register.TagType(tag, converter.TagTypeRemove, converter.PriorityStandard)
	}

	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		MaxImages: maxImages,
		converter: conv,
	}
}

type pageImage struct {
	src     string
	caption string
	node    *goquery.Selection
}

// Fetch downloads pageURL, converts its main content to markdown and keeps
// the figures that can be downloaded and are large enough. Retained figures
// are numbered in page order and anchored in the text as [Figure N].
func (f *Fetcher) Fetch(ctx context.Context, pageURL string, sink extract.ImageSink) (extract.Content, error) {
	slog.Info("Fetching web page", "url", pageURL)

	pageBase, err := url.Parse(pageURL)
	if err != nil {
		return extract.Content{}, fmt.Errorf("failed to parse url: %w", err)
	}

	body, _, err := f.get(ctx, pageURL, maxPageBytes)
	if err != nil {
		return extract.Content{}, fmt.Errorf("failed to fetch page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return extract.Content{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := pageTitle(doc)
	root := contentRoot(doc)

	var infos []models.ImageInfo
	for _, img := range collectImages(root, pageBase) {
		if f.MaxImages >= 0 && len(infos) >= f.MaxImages {
			img.node.Remove()
			continue
		}
		n := len(infos) + 1
		info, err := f.keepImage(ctx, img, n, sink)
		if err != nil {
			slog.Debug("Dropping page image", "src", img.src, "error", err)
			img.node.Remove()
			continue
		}
		img.node.ReplaceWithHtml("<p>" + figureMarker(n) + "</p>")
		infos = append(infos, info)
	}

	html, err := root.Html()
	if err != nil {
		return extract.Content{}, fmt.Errorf("failed to render page content: %w", err)
	}
	markdown, err := f.converter.ConvertString(html)
	if err != nil {
		return extract.Content{}, fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}
	for i := range infos {
		markdown = strings.ReplaceAll(markdown, figureMarker(i+1), fmt.Sprintf("[Figure %d]", i+1))
	}

	text := strings.TrimSpace(markdown)
	if title != "" && !strings.HasPrefix(text, "# ") {
		text = "# " + title + "\n\n" + text
	}

	slog.Info("Fetched web page", "url", pageURL, "title", title, "text_length", len(text), "images", len(infos))
	return extract.Content{Text: text, Images: infos}, nil
}

// keepImage downloads one image, checks its size and stores it. The remote
// URL is used when there is no sink or storing fails.
func (f *Fetcher) keepImage(ctx context.Context, img pageImage, n int, sink extract.ImageSink) (models.ImageInfo, error) {
	data, contentType, err := f.get(ctx, img.src, maxImageBytes)
	if err != nil {
		return models.ImageInfo{}, err
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return models.ImageInfo{}, fmt.Errorf("failed to decode image: %w", err)
	}
	if cfg.Width < extract.MinImageSide || cfg.Height < extract.MinImageSide {
		return models.ImageInfo{}, fmt.Errorf("image too small: %dx%d", cfg.Width, cfg.Height)
	}

	location := img.src
	if sink != nil {
		saved, err := sink.SaveImage(fmt.Sprintf("web_%02d%s", n, imageExtension(img.src, contentType, format)), data)
		if err != nil {
			slog.Warn("Failed to store page image, linking remote copy", "src", img.src, "error", err)
		} else {
			location = saved
		}
	}

	caption := img.caption
	if caption == "" {
		caption = fmt.Sprintf("Image %d from the article", n)
	}
	return extract.NewImageInfo(n, caption, location), nil
}

// get downloads u, reading at most limit bytes
func (f *Fetcher) get(ctx context.Context, u string, limit int64) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("%s returned status %d", u, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", u, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func pageTitle(doc *goquery.Document) string {
	if t := strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", "")); t != "" {
		return t
	}
	if t := strings.TrimSpace(doc.Find("h1").First().Text()); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// contentRoot picks the element holding the article body
func contentRoot(doc *goquery.Document) *goquery.Selection {
	for _, sel := range []string{"article", "main", "body"} {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return s
		}
	}
	return doc.Selection
}

// collectImages lists the images under root in document order, resolving
// relative sources and taking the caption from figcaption, alt or title.
func collectImages(root *goquery.Selection, pageBase *url.URL) []pageImage {
	var images []pageImage
	seen := make(map[string]bool)
	root.Find("img").Each(func(_ int, s *goquery.Selection) {
		src := strings.TrimSpace(s.AttrOr("src", ""))
		if src == "" || strings.HasPrefix(src, "data:") {
			src = strings.TrimSpace(s.AttrOr("data-src", ""))
		}
		if src == "" || strings.HasPrefix(src, "data:") {
			s.Remove()
			return
		}
		ref, err := url.Parse(src)
		if err != nil {
			s.Remove()
			return
		}
		abs := pageBase.ResolveReference(ref).String()
		if seen[abs] {
			s.Remove()
			return
		}
		seen[abs] = true

		caption := strings.TrimSpace(s.Closest("figure").Find("figcaption").First().Text())
		if caption == "" {
			caption = strings.TrimSpace(s.AttrOr("alt", ""))
		}
		if caption == "" {
			caption = strings.TrimSpace(s.AttrOr("title", ""))
		}
		s.Closest("figure").Find("figcaption").Remove()

		caption = strings.ReplaceAll(strings.Join(strings.Fields(caption), " "), ":", " -")
		images = append(images, pageImage{src: abs, caption: caption, node: s})
	})
	return images
}

func imageExtension(src, contentType, format string) string {
	if u, err := url.Parse(src); err == nil {
		if ext := strings.ToLower(path.Ext(u.Path)); ext != "" && len(ext) <= 5 {
			return ext
		}
	}
	if contentType != "" {
		if exts, err := mime.ExtensionsByType(strings.SplitN(contentType, ";", 2)[0]); err == nil && len(exts) > 0 {
			return exts[0]
		}
	}
	if format != "" {
		return "." + format
	}
	return ".img"
}
