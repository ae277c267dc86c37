package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

const (
	mimePDF  = "application/pdf"
	mimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeText = "text/plain"
)

var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrEmptyText           = errors.New("no text could be extracted from the file")
)

// fences at the start or end of any line, with an optional json tag
var codeFence = regexp.MustCompile("(?m)^```(?:json)?|```$")

// CleanJson strips markdown code fences the model wraps around its JSON.
func CleanJson(input string) string {
	clean := strings.TrimSpace(input)
	clean = codeFence.ReplaceAllString(clean, "")
	return strings.TrimSpace(clean)
}

// retryBackoff is the base wait between attempts; attempt i waits i+1 times it.
var retryBackoff = 500 * time.Millisecond

// retry retries a function up to `attempts` times with linear backoff. It
// stops waiting as soon as ctx is done.
func retry[T any](ctx context.Context, attempts int, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for i := 0; i < attempts; i++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		if ctx.Err() != nil {
			return zero, fmt.Errorf("after %d attempts: %w", i+1, lastErr)
		}
		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("after %d attempts: %w", i+1, lastErr)
		case <-time.After(retryBackoff * time.Duration(i+1)):
		}
	}
	return zero, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

// --- Object storage ---

func r2Client(cfg aws.Config, accountID string) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID))
	})
}

func DownloadFromR2(ctx context.Context, client *s3.Client, bucket, key string) ([]byte, error) {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer out.Body.Close()

	buf := new(bytes.Buffer)
	_, err = io.Copy(buf, out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return buf.Bytes(), nil
}

func UploadToR2(ctx context.Context, client *s3.Client, bucket, key, contentType string, data []byte) error {
	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}

// r2Store is the ObjectStore backed by a Cloudflare R2 bucket.
type r2Store struct {
	client *s3.Client
	bucket string
}

func (s *r2Store) Put(ctx context.Context, key, contentType string, data []byte) error {
	return UploadToR2(ctx, s.client, s.bucket, key, contentType, data)
}

func (s *r2Store) Get(ctx context.Context, key string) ([]byte, error) {
	return DownloadFromR2(ctx, s.client, s.bucket, key)
}

func objectKey(analysisID, filename string) string {
	name := filepath.Base(filename)
	if name == "." || name == "/" || name == "" {
		name = "resume"
	}
	return fmt.Sprintf("resumes/%s/%s", analysisID, name)
}

// --- Text extraction ---

// detectMime picks the resume's media type from the declared content type,
// then the file extension, then the content itself.
func detectMime(filename, declared string, data []byte) string {
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil && supportedMime(mt) {
			return mt
		}
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return mimePDF
	case ".docx":
		return mimeDocx
	case ".txt":
		return mimeText
	}

	sniffed := http.DetectContentType(data)
	if mt, _, err := mime.ParseMediaType(sniffed); err == nil {
		return mt
	}
	return sniffed
}

func supportedMime(mt string) bool {
	switch mt {
	case mimePDF, mimeDocx, mimeText:
		return true
	}
	return false
}

func ExtractResumeText(mimeType string, data []byte) (string, error) {
	var (
		text string
		err  error
	)
	switch mimeType {
	case mimeText:
		text = string(data)

	case mimePDF:
		text, err = extractPDFText(bytes.NewReader(data), int64(len(data)))

	case mimeDocx:
		text, err = extractDocxText(bytes.NewReader(data), int64(len(data)))

	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, mimeType)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	return text, nil
}

// extractPDFText joins the plain text of every page with a newline.
func extractPDFText(reader io.ReaderAt, size int64) (text string, err error) {
	// ledongthuc/pdf panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to read pdf: %v", r)
		}
	}()

	pdfReader, err := pdf.NewReader(reader, size)
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}

	numPages := pdfReader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			slog.Debug("skipping unreadable pdf page", "page", i, "error", err)
			continue
		}
		pages = append(pages, pageText)
	}
	return strings.Join(pages, "\n"), nil
}

func extractDocxText(reader io.ReaderAt, size int64) (string, error) {
	doc, err := docx.ReadDocxFromMemory(reader, size)
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	return docxPlainText(doc.Editable().GetContent()), nil
}

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>`)
	docxTag          = regexp.MustCompile(`<[^>]+>`)
)

// docxPlainText turns word/document.xml into one line per paragraph.
func docxPlainText(content string) string {
	content = docxParagraphEnd.ReplaceAllString(content, "\n")
	content = docxTag.ReplaceAllString(content, "")
	return html.UnescapeString(content)
}
