package mail

import (
	"encoding/base64"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParse_MultipartAlternative(t *testing.T) {
	raw := strings.Join([]string{
		"From: Spazio Alfieri <info@spazioalfieri.it>",
		"To: bot@example.org",
		"Subject: =?UTF-8?Q?Spazio_Alfieri_=E2=80=A2_programmazione?=",
		"Date: Tue, 24 Sep 2024 09:30:00 +0200",
		"MIME-Version: 1.0",
		`Content-Type: multipart/alternative; boundary="b1"`,
		"",
		"--b1",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"Versione testuale.",
		"--b1",
		"Content-Type: text/html; charset=utf-8",
		"Content-Transfer-Encoding: quoted-printable",
		"",
		"<html><body><p>mercoled=C3=AC 25 ore 21:00</p></body></html>",
		"--b1--",
		"",
	}, "\r\n")

	msg, err := Parse(strings.NewReader(raw))
	require.NoError(t, err)

	require.Equal(t, "Spazio Alfieri <info@spazioalfieri.it>", msg.From)
	require.Equal(t, "Spazio Alfieri • programmazione", msg.Subject)
	require.Equal(t, "<html><body><p>mercoledì 25 ore 21:00</p></body></html>", msg.HTMLBody)

	want := time.Date(2024, time.September, 24, 9, 30, 0, 0, time.FixedZone("", 2*60*60))
	require.True(t, msg.Date.Equal(want), "got date %v", msg.Date)
}

func TestParse_SinglePartBase64(t *testing.T) {
	html := "<html><body><h1>MARIA MONTESSORI</h1></body></html>"
	raw := strings.Join([]string{
		"From: info@spazioalfieri.it",
		"Subject: programmazione",
		"Content-Type: text/html; charset=utf-8",
		"Content-Transfer-Encoding: base64",
		"",
		base64.StdEncoding.EncodeToString([]byte(html)),
		"",
	}, "\r\n")

	msg, err := Parse(strings.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, html, msg.HTMLBody)
	require.True(t, msg.Date.IsZero())
}

func TestParse_NestedMultipart(t *testing.T) {
	raw := strings.Join([]string{
		"From: info@spazioalfieri.it",
		"Subject: programmazione",
		`Content-Type: multipart/mixed; boundary="outer"`,
		"",
		"--outer",
		`Content-Type: multipart/alternative; boundary="inner"`,
		"",
		"--inner",
		"Content-Type: text/plain",
		"",
		"testo",
		"--inner",
		"Content-Type: text/html",
		"",
		"<p>annidato</p>",
		"--inner--",
		"--outer",
		"Content-Type: application/pdf",
		"Content-Transfer-Encoding: base64",
		"",
		base64.StdEncoding.EncodeToString([]byte("%PDF-fake")),
		"--outer--",
		"",
	}, "\r\n")

	msg, err := Parse(strings.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, "<p>annidato</p>", msg.HTMLBody)
}

func TestParse_NoHTMLPart(t *testing.T) {
	raw := strings.Join([]string{
		"From: info@spazioalfieri.it",
		"Subject: programmazione",
		"Content-Type: text/plain",
		"",
		"solo testo",
		"",
	}, "\r\n")

	_, err := Parse(strings.NewReader(raw))
	require.ErrorIs(t, err, ErrNoHTMLPart)
}

func TestParse_NotAnEmail(t *testing.T) {
	_, err := Parse(strings.NewReader("definitely not an email"))
	require.Error(t, err)
}

func TestParse_BrokenEncodedSubjectFallsBack(t *testing.T) {
	subject := "=?nonsense-charset?Q?ciao?="
	raw := strings.Join([]string{
		"From: info@spazioalfieri.it",
		fmt.Sprintf("Subject: %s", subject),
		"Content-Type: text/html",
		"",
		"<p>ok</p>",
		"",
	}, "\r\n")

	msg, err := Parse(strings.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, subject, msg.Subject)
}
