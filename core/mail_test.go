package core

import (
	"net/mail"
	"strings"
	"testing"
	"testing/fstest"
)

func TestEmailMessage_Render(t *testing.T) {
	data := map[string]interface{}{
		"Name": "Hero",
		"Enrollment": struct {
			SubjectCode, SubjectName, Term, Instructor, Schedule string
			Credits                                              int
		}{"MAT101", "Calculus I", "2025-1", "Prof. Ada", "Mon 08:00-10:00", 5},
	}

	tests := []struct {
		name     string
		msg      EmailMessage
		wantText []string
		wantNone bool
	}{
		{
			name:     "enrollment confirmed",
			msg:      EmailMessage{TemplateName: "enrollment_confirmed", TemplateData: data},
			wantText: []string{"Hello Hero", "MAT101 - Calculus I (2025-1)", "http://front.test/student/subjects"},
		},
		{
			name:     "enrollment dropped",
			msg:      EmailMessage{TemplateName: "enrollment_dropped", TemplateData: data},
			wantText: []string{"Hello Hero", "MAT101"},
		},
		{name: "unknown template", msg: EmailMessage{TemplateName: "lol", TemplateData: data}, wantNone: true},
		{name: "plain body", msg: EmailMessage{BodyStr: "Hi!"}, wantText: []string{"Hi!"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.msg
			msg.To = []mail.Address{{Name: "Hero", Address: "hero@test.cd"}}
			if err := msg.Render("http://front.test"); err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if msg.HasContent() == tt.wantNone {
				t.Fatalf("Render() HasContent() = %v, wantNone %v", msg.HasContent(), tt.wantNone)
			}
			for _, want := range tt.wantText {
				if !strings.Contains(msg.TextContent, want) {
					t.Errorf("Render() text = %q, want it to contain %q", msg.TextContent, want)
				}
			}
			if tt.msg.TemplateName != "" && !tt.wantNone && !strings.Contains(msg.HTMLContent, "Hero") {
				t.Errorf("Render() html = %q, want it to contain %q", msg.HTMLContent, "Hero")
			}
		})
	}
}

func TestParseTemplates(t *testing.T) {
	content := []byte(`{{define "content"}}hi{{end}}`)
	tests := []struct {
		name     string
		fsys     fstest.MapFS
		wantErr  bool
		wantTmpl []string
	}{
		{
			name:     "embedded templates",
			wantTmpl: []string{"enrollment_confirmed", "enrollment_dropped"},
		},
		{
			name: "base templates missing",
			fsys: fstest.MapFS{
				"templates/email/hello.txt":    {Data: content},
				"templates/email/hello.gohtml": {Data: content},
			},
			wantErr: true,
		},
		{
			name: "with base templates",
			fsys: fstest.MapFS{
				"templates/email/_base.txt":    {Data: []byte(`{{define "base"}}{{template "content" .}}{{end}}`)},
				"templates/email/_base.gohtml": {Data: []byte(`{{define "base"}}{{template "content" .}}{{end}}`)},
				"templates/email/hello.txt":    {Data: content},
				"templates/email/hello.gohtml": {Data: content},
			},
			wantTmpl: []string{"hello"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saved := templates
			t.Cleanup(func() { templates = saved })
			templates = nil

			var err error
			if tt.fsys == nil {
				err = parseTemplates(emailTemplatesFS)
			} else {
				err = parseTemplates(tt.fsys)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseTemplates() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if templates != nil {
					t.Errorf("parseTemplates() kept a partial cache: %v", templates)
				}
				return
			}
			for _, name := range tt.wantTmpl {
				if len(templates[name]) != 2 {
					t.Errorf("parseTemplates() templates[%q] = %v, want .txt and .gohtml", name, templates[name])
				}
			}
		})
	}
}
