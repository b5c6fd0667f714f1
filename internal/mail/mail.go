// Package mail pulls the pieces the import pipeline needs out of a raw
// RFC 822 email: sender, decoded subject, send date and the HTML body.
// Mailgun does this extraction server side before it calls the webhook; this
// package does the same for .eml files replayed from disk.
package mail

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"time"
)

// ErrNoHTMLPart means the message carries no text/html part anywhere in its
// MIME tree.
var ErrNoHTMLPart = errors.New("no text/html part in message")

type Message struct {
	From     string
	Subject  string
	Date     time.Time
	HTMLBody string
}

// Parse reads one raw email. Bodies are assumed UTF-8 once the transfer
// encoding is undone. Date is the zero time when the header is missing or
// unparsable.
func Parse(r io.Reader) (*Message, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return nil, fmt.Errorf("read message: %w", err)
	}

	html, err := findHTML(
		msg.Header.Get("Content-Type"),
		msg.Header.Get("Content-Transfer-Encoding"),
		msg.Body,
	)
	if err != nil {
		return nil, err
	}
	if html == "" {
		return nil, ErrNoHTMLPart
	}

	date, _ := msg.Header.Date()

	return &Message{
		From:     decodeHeader(msg.Header.Get("From")),
		Subject:  decodeHeader(msg.Header.Get("Subject")),
		Date:     date,
		HTMLBody: html,
	}, nil
}

// decodeHeader undoes RFC 2047 encoded words, falling back to the raw value
// when decoding fails.
func decodeHeader(value string) string {
	decoded, err := new(mime.WordDecoder).DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// findHTML walks the MIME tree depth first and returns the first text/html
// body, or "" when there is none.
func findHTML(contentType, transferEncoding string, body io.Reader) (string, error) {
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("parse content type: %w", err)
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return "", errors.New("multipart message without boundary")
		}
		return findHTMLInParts(body, boundary)
	}

	if mediaType != "text/html" {
		return "", nil
	}

	decoded, err := decodeBody(body, transferEncoding)
	if err != nil {
		return "", fmt.Errorf("decode text/html part: %w", err)
	}
	return string(decoded), nil
}

func findHTMLInParts(body io.Reader, boundary string) (string, error) {
	mr := multipart.NewReader(body, boundary)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("read multipart: %w", err)
		}

		// NextPart already undoes quoted-printable and hides that header,
		// so only base64 is left to deal with here.
		html, err := findHTML(
			part.Header.Get("Content-Type"),
			part.Header.Get("Content-Transfer-Encoding"),
			part,
		)
		if err != nil {
			return "", err
		}
		if html != "" {
			return html, nil
		}
	}
}

// decodeBody undoes the content transfer encoding. Encodings that do not
// change the bytes, like 7bit and 8bit, pass through untouched.
func decodeBody(body io.Reader, encoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		body = base64.NewDecoder(base64.StdEncoding, body)
	case "quoted-printable":
		body = quotedprintable.NewReader(body)
	}
	return io.ReadAll(body)
}
