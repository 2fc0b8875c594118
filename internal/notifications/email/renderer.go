// Package email renders notification requests into branded HTML messages
// with a plain-text alternative.
package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"myomesh/internal/types"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	lastNoteLimit    = 200
	unknownClient    = "Unknown"
	noClients        = "No clients assigned"
	timeToBeDecided  = "TBD"
	testEmailSubject = "Test Email from MyoMesh"
)

var kinds = []types.NotificationKind{
	types.KindConfirmation,
	types.KindStaffNotification,
	types.KindClientUpdate,
	types.KindStaffUpdate,
	types.KindClientCancellation,
	types.KindStaffCancellation,
	types.KindDailyDigest,
	types.KindTest,
}

// templateData is the view passed to every template. Dates and times are
// already formatted for display.
type templateData struct {
	BusinessName  string
	RecipientName string
	Date          string
	Time          string
	SessionType   string
	StaffName     string
	ClientNames   string
	Notes         string
	Changes       []string
	WasReassigned bool

	Sessions     []digestSessionView
	SessionCount int
}

type digestSessionView struct {
	Time        string
	Type        string
	ClientNames string
	Notes       string
	Clients     []digestClientView
}

type digestClientView struct {
	Name         string
	Concerns     string
	HasNote      bool
	LastNote     string
	HasBodyChart bool
}

// RendererConfig holds the parameters needed to construct a Renderer.
type RendererConfig struct {
	// DefaultBusinessName is used when a request carries no business name.
	DefaultBusinessName string
}

// Renderer turns MessageRequests into OutboundMessages using the embedded
// templates. It is safe for concurrent use.
type Renderer struct {
	templates       map[types.NotificationKind]*template.Template
	defaultBusiness string
}

// NewRenderer parses the embedded templates. Each kind is parsed on top of
// its own copy of base.html.
func NewRenderer(cfg RendererConfig) (*Renderer, error) {
	r := &Renderer{
		templates:       make(map[types.NotificationKind]*template.Template, len(kinds)),
		defaultBusiness: cfg.DefaultBusinessName,
	}

	baseHTML, err := templateFS.ReadFile("templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("renderer: failed to read base.html: %w", err)
	}
	for _, kind := range kinds {
		name := string(kind)
		content, err := templateFS.ReadFile(fmt.Sprintf("templates/%s.html", name))
		if err != nil {
			return nil, fmt.Errorf("renderer: failed to read %s.html: %w", name, err)
		}
		tmpl, err := template.New("base").Parse(string(baseHTML))
		if err != nil {
			return nil, fmt.Errorf("renderer: failed to parse base.html: %w", err)
		}
		if _, err := tmpl.Parse(string(content)); err != nil {
			return nil, fmt.Errorf("renderer: failed to parse %s.html: %w", name, err)
		}
		r.templates[kind] = tmpl
	}
	return r, nil
}

// Render produces the subject, HTML body and plain-text body for req.
func (r *Renderer) Render(req types.MessageRequest) (types.OutboundMessage, error) {
	tmpl, ok := r.templates[req.Kind]
	if !ok {
		return types.OutboundMessage{}, types.NewAppError(types.ErrCodeInternalRender,
			fmt.Sprintf("no template for notification kind %q", req.Kind), nil)
	}

	data := r.buildTemplateData(req)
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return types.OutboundMessage{}, types.NewAppError(types.ErrCodeInternalRender,
			fmt.Sprintf("failed to render %s", req.Kind), err)
	}

	htmlBody := buf.String()
	return types.OutboundMessage{
		Kind:     req.Kind,
		To:       req.RecipientEmail,
		Subject:  Subject(req),
		HTMLBody: htmlBody,
		TextBody: HTMLToText(htmlBody),
	}, nil
}

// Subject returns the subject line for req.
func Subject(req types.MessageRequest) string {
	s := req.Session
	switch req.Kind {
	case types.KindConfirmation:
		return "Appointment Confirmed - " + FormatDate(s.Date)
	case types.KindStaffNotification:
		return fmt.Sprintf("New Booking - %s on %s", s.ClientNames, FormatDate(s.Date))
	case types.KindClientUpdate:
		return "Appointment Updated - " + FormatDate(s.Date)
	case types.KindStaffUpdate:
		return "Appointment Updated - " + s.ClientNames
	case types.KindClientCancellation:
		return "Appointment Cancelled - " + FormatDate(s.Date)
	case types.KindStaffCancellation:
		return "Appointment Cancelled - " + s.ClientNames
	case types.KindDailyDigest:
		return "Tomorrow's Schedule - " + FormatDate(req.DigestDate)
	case types.KindTest:
		return testEmailSubject
	default:
		return string(req.Kind)
	}
}

func (r *Renderer) buildTemplateData(req types.MessageRequest) templateData {
	biz := req.BusinessName
	if biz == "" {
		biz = r.defaultBusiness
	}
	s := req.Session
	data := templateData{
		BusinessName:  biz,
		RecipientName: req.RecipientName,
		Date:          FormatDate(s.Date),
		Time:          FormatTime(s.Time),
		SessionType:   s.Type,
		StaffName:     s.TeacherName,
		ClientNames:   s.ClientNames,
		Notes:         s.Notes,
		Changes:       req.Changes,
		WasReassigned: req.WasReassigned,
	}
	if req.Kind == types.KindDailyDigest {
		data.Date = FormatDate(req.DigestDate)
		data.Sessions = digestViews(req.DigestSessions)
		data.SessionCount = len(req.DigestSessions)
	}
	return data
}

func digestViews(sessions []types.DigestSession) []digestSessionView {
	views := make([]digestSessionView, 0, len(sessions))
	for _, ds := range sessions {
		v := digestSessionView{
			Time:        timeToBeDecided,
			Type:        ds.Type,
			ClientNames: ds.ClientNames,
			Notes:       ds.Notes,
		}
		if ds.Time != "" {
			v.Time = FormatTime(ds.Time)
		}
		if v.ClientNames == "" {
			v.ClientNames = noClients
		}
		for _, h := range ds.ClientHistories {
			c := digestClientView{
				Name:         h.Name,
				Concerns:     strings.Join(h.CurrentConcerns, ", "),
				HasBodyChart: h.HasBodyChart,
			}
			if c.Name == "" {
				c.Name = unknownClient
			}
			if len(h.RecentNotes) > 0 {
				c.HasNote = true
				c.LastNote = truncateRunes(h.RecentNotes[0].Content, lastNoteLimit)
				if c.LastNote == "" {
					c.LastNote = "No notes"
				}
			}
			v.Clients = append(v.Clients, c)
		}
		views = append(views, v)
	}
	return views
}
