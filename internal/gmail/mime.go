package gmail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const maxHeaderValue = 255

var controlChars = regexp.MustCompile(`[\x00-\x1f\x7f-\x9f]`)

// sanitizeHeaderValue strips anything that could end a header line or break
// a quoted parameter, then caps the length.
func sanitizeHeaderValue(v string) string {
	v = controlChars.ReplaceAllString(v, "")
	v = strings.ReplaceAll(v, `"`, "")
	if r := []rune(v); len(r) > maxHeaderValue {
		v = string(r[:maxHeaderValue])
	}
	return strings.TrimSpace(v)
}

func stripLineBreaks(v string) string {
	return controlChars.ReplaceAllString(v, "")
}

type mimePart struct {
	header textproto.MIMEHeader
	body   []byte
}

func textPart(subtype, body string) (mimePart, error) {
	var buf bytes.Buffer
	w := quotedprintable.NewWriter(&buf)
	if _, err := w.Write([]byte(body)); err != nil {
		return mimePart{}, fmt.Errorf("encode %s body: %w", subtype, err)
	}
	if err := w.Close(); err != nil {
		return mimePart{}, fmt.Errorf("encode %s body: %w", subtype, err)
	}
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", fmt.Sprintf(`text/%s; charset="utf-8"`, subtype))
	h.Set("Content-Transfer-Encoding", "quoted-printable")
	return mimePart{header: h, body: buf.Bytes()}, nil
}

func attachmentPart(a AttachmentData) mimePart {
	mt := a.MimeType
	if mt == "" {
		mt = "application/octet-stream"
	}
	name := sanitizeHeaderValue(a.Filename)
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", mime.FormatMediaType(mt, map[string]string{"name": name}))
	h.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	h.Set("Content-Transfer-Encoding", "base64")

	enc := base64.StdEncoding.EncodeToString(a.Data)
	var buf bytes.Buffer
	for len(enc) > 76 {
		buf.WriteString(enc[:76])
		buf.WriteString("\r\n")
		enc = enc[76:]
	}
	buf.WriteString(enc)
	return mimePart{header: h, body: buf.Bytes()}
}

func multipartOf(kind string, parts ...mimePart) (mimePart, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		pw, err := w.CreatePart(p.header)
		if err != nil {
			return mimePart{}, fmt.Errorf("create %s part: %w", kind, err)
		}
		if _, err := pw.Write(p.body); err != nil {
			return mimePart{}, fmt.Errorf("write %s part: %w", kind, err)
		}
	}
	if err := w.Close(); err != nil {
		return mimePart{}, fmt.Errorf("close %s: %w", kind, err)
	}
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", fmt.Sprintf("multipart/%s; boundary=%s", kind, w.Boundary()))
	return mimePart{header: h, body: buf.Bytes()}, nil
}

// buildRaw renders d as an RFC 2822 message, base64url encoded for
// messages.send. Attachments must already be loaded.
func buildRaw(d Draft, attachments []AttachmentData) (string, error) {
	var root mimePart
	var err error
	switch {
	case d.BodyText != "" && d.BodyHTML != "":
		var text, htmlPart mimePart
		if text, err = textPart("plain", d.BodyText); err != nil {
			return "", err
		}
		if htmlPart, err = textPart("html", d.BodyHTML); err != nil {
			return "", err
		}
		root, err = multipartOf("alternative", text, htmlPart)
	case d.BodyHTML != "":
		root, err = textPart("html", d.BodyHTML)
	default:
		root, err = textPart("plain", d.BodyText)
	}
	if err != nil {
		return "", err
	}

	if len(attachments) > 0 {
		parts := []mimePart{root}
		for _, a := range attachments {
			parts = append(parts, attachmentPart(a))
		}
		if root, err = multipartOf("mixed", parts...); err != nil {
			return "", err
		}
	}

	var buf bytes.Buffer
	writeHeader := func(k, v string) {
		if v != "" {
			fmt.Fprintf(&buf, "%s: %s\r\n", k, v)
		}
	}
	writeHeader("To", stripLineBreaks(strings.Join(d.To, ", ")))
	writeHeader("Cc", stripLineBreaks(strings.Join(d.Cc, ", ")))
	writeHeader("Bcc", stripLineBreaks(strings.Join(d.Bcc, ", ")))
	writeHeader("Subject", mime.QEncoding.Encode("utf-8", stripLineBreaks(d.Subject)))
	if d.InReplyTo != "" {
		writeHeader("In-Reply-To", stripLineBreaks(d.InReplyTo))
		refs := d.References
		if refs == "" {
			refs = d.InReplyTo
		}
		writeHeader("References", stripLineBreaks(refs))
	}
	writeHeader("MIME-Version", "1.0")
	for k, vs := range root.header {
		for _, v := range vs {
			writeHeader(k, v)
		}
	}
	buf.WriteString("\r\n")
	buf.Write(root.body)

	return base64.URLEncoding.EncodeToString(buf.Bytes()), nil
}

// loadAttachment reads a local file for sending.
func loadAttachment(path string) (AttachmentData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AttachmentData{}, fmt.Errorf("read attachment: %w", err)
	}
	mt := mime.TypeByExtension(filepath.Ext(path))
	if mt == "" {
		mt = "application/octet-stream"
	} else if base, _, err := mime.ParseMediaType(mt); err == nil {
		mt = base
	}
	return AttachmentData{Filename: filepath.Base(path), MimeType: mt, Data: data}, nil
}

// referencesFor extends the original's References chain with its own
// Message-ID.
func referencesFor(m *Message) string {
	if m.ReplyToID == "" {
		return m.References
	}
	if m.References == "" {
		return m.ReplyToID
	}
	if strings.Contains(m.References, m.ReplyToID) {
		return m.References
	}
	return m.References + " " + m.ReplyToID
}

func forwardHeader(m *Message) string {
	var b strings.Builder
	b.WriteString("---------- Forwarded message ---------\n")
	if m.Sender != nil {
		fmt.Fprintf(&b, "From: %s\n", m.Sender)
	}
	if !m.Date.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", m.Date.Format("Mon, Jan 2, 2006 at 3:04 PM"))
	}
	fmt.Fprintf(&b, "Subject: %s\n", m.Subject)
	if len(m.To) > 0 {
		to := make([]string, 0, len(m.To))
		for _, a := range m.To {
			to = append(to, a.String())
		}
		fmt.Fprintf(&b, "To: %s\n", strings.Join(to, ", "))
	}
	return b.String()
}

func forwardBodyText(m *Message) string {
	return "\n\n" + forwardHeader(m) + "\n" + m.BodyText
}

func forwardBodyHTML(m *Message) string {
	hdr := strings.ReplaceAll(html.EscapeString(forwardHeader(m)), "\n", "<br>\n")
	return "<br><br><div class=\"gmail_quote\">" + hdr + "<br>" + m.BodyHTML + "</div>"
}
