package gmail

import (
	"encoding/base64"
	"html"
	"log/slog"
	"net/mail"
	"slices"
	"strings"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/joshsymonds/gworkspace/internal/validate"
)

// fromAPIMessage maps a full-format message. Unparsable headers and bad
// addresses are skipped with a warning rather than failing the fetch.
func fromAPIMessage(msg *gmailapi.Message, logger *slog.Logger) Message {
	out := Message{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		LabelIDs: slices.Clone(msg.LabelIds),
		Snippet:  strings.TrimSpace(html.UnescapeString(msg.Snippet)),
	}
	if msg.Payload == nil {
		out.applyLabels(nil, nil)
		return out
	}

	headers := map[string]string{}
	for _, h := range msg.Payload.Headers {
		headers[strings.ToLower(h.Name)] = h.Value
	}
	out.Subject = strings.TrimSpace(headers["subject"])
	out.ReplyToID = headers["message-id"]
	out.References = headers["references"]
	out.ListID = strings.TrimSpace(headers["list-id"])

	if from := parseAddresses(headers["from"], logger); len(from) > 0 {
		out.Sender = &from[0]
	}
	out.To = parseAddresses(headers["to"], logger)
	out.Cc = parseAddresses(headers["cc"], logger)
	out.Bcc = parseAddresses(headers["bcc"], logger)

	if raw := headers["date"]; raw != "" {
		if t, err := mail.ParseDate(raw); err == nil {
			out.Date = t.Local()
		} else {
			logger.Warn("unparsable date header", "message_id", msg.Id, "error", err)
		}
	}

	out.BodyText, out.BodyHTML = extractBody(msg.Payload)
	out.Attachments = extractAttachments(msg.Id, msg.Payload)
	out.applyLabels(nil, nil)
	return out
}

func parseAddresses(value string, logger *slog.Logger) []Address {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	list, err := mail.ParseAddressList(value)
	if err != nil {
		// Fall back to a per-entry parse so one malformed entry does not
		// lose the rest.
		list = nil
		for _, part := range strings.Split(value, ",") {
			if a, perr := mail.ParseAddress(strings.TrimSpace(part)); perr == nil {
				list = append(list, a)
			}
		}
	}
	var out []Address
	for _, a := range list {
		if !validate.IsEmail(a.Address) {
			logger.Warn("skipping invalid address", "error", "invalid email format")
			continue
		}
		out = append(out, Address{Email: a.Address, Name: a.Name})
	}
	return out
}

// decodeBody decodes Gmail's base64url payloads, tolerating either padding
// style.
func decodeBody(data string) string {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return ""
	}
	return string(b)
}

func extractBody(p *gmailapi.MessagePart) (text, htmlBody string) {
	if len(p.Parts) == 0 {
		if p.Body != nil && p.Body.Data != "" {
			switch p.MimeType {
			case "text/plain":
				text = decodeBody(p.Body.Data)
			case "text/html":
				htmlBody = decodeBody(p.Body.Data)
			}
		}
		return text, htmlBody
	}
	var walk func(parts []*gmailapi.MessagePart)
	walk = func(parts []*gmailapi.MessagePart) {
		for _, part := range parts {
			hasData := part.Body != nil && part.Body.Data != ""
			switch {
			case part.MimeType == "text/plain" && hasData && part.Filename == "":
				text = decodeBody(part.Body.Data)
			case part.MimeType == "text/html" && hasData && part.Filename == "":
				htmlBody = decodeBody(part.Body.Data)
			case len(part.Parts) > 0:
				walk(part.Parts)
			}
		}
	}
	walk(p.Parts)
	return text, htmlBody
}

func extractAttachments(messageID string, p *gmailapi.MessagePart) []Attachment {
	var out []Attachment
	var walk func(part *gmailapi.MessagePart)
	walk = func(part *gmailapi.MessagePart) {
		if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
			mt := part.MimeType
			if mt == "" {
				mt = "application/octet-stream"
			}
			out = append(out, Attachment{
				Filename:     part.Filename,
				MimeType:     mt,
				Size:         part.Body.Size,
				AttachmentID: part.Body.AttachmentId,
				MessageID:    messageID,
			})
			return
		}
		for _, child := range part.Parts {
			walk(child)
		}
	}
	// a single-part message can itself be the attachment
	walk(p)
	return out
}

func fromAPILabel(l *gmailapi.Label) Label {
	return Label{ID: l.Id, Name: l.Name, Type: l.Type}
}

func fromAPIThread(t *gmailapi.Thread, logger *slog.Logger) Thread {
	out := Thread{ID: t.Id, Snippet: html.UnescapeString(t.Snippet), HistoryID: t.HistoryId}
	for _, m := range t.Messages {
		out.Messages = append(out.Messages, fromAPIMessage(m, logger))
	}
	return out
}
