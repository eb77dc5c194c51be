package mail

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"staybook/internal/app/policies"
)

type mailTemplate struct {
	subject *template.Template
	body    *template.Template
}

var sources = map[string][2]string{
	policies.TemplateRequestReceived: {
		"We received your booking request for {{.ApartmentName}}",
		`Hello {{.CustomerName}},

Thank you for your request to stay at {{.ApartmentName}} from {{.StartDate}} to {{.EndDate}}.
The quoted price is {{.Total}}{{if .HasParking}}, parking included{{end}}.
We will confirm your booking shortly.
{{if .ContractURL}}
Your draft contract: {{.ContractURL}}
{{end}}`,
	},
	policies.TemplateNewRequest: {
		"New booking request {{.BookingID}} for {{.ApartmentName}}",
		`New request for {{.ApartmentName}}.

Guest: {{.CustomerName}} <{{.CustomerEmail}}>{{if .CustomerPhone}} {{.CustomerPhone}}{{end}}
Stay: {{.StartDate}} to {{.EndDate}}
Price: {{.Total}}{{if .HasParking}} (with parking){{end}}
Reference: {{.BookingID}}
`,
	},
	policies.TemplateConfirmed: {
		"Your stay at {{.ApartmentName}} is confirmed",
		`Hello {{.CustomerName}},

Your booking {{.BookingID}} at {{.ApartmentName}} from {{.StartDate}} to {{.EndDate}} is confirmed.
Total price: {{.Total}}{{if .HasParking}}, parking included{{end}}.
{{if .ContractURL}}
Please sign and return your contract: {{.ContractURL}}
{{end}}`,
	},
	policies.TemplateRejected: {
		"Your booking request for {{.ApartmentName}}",
		`Hello {{.CustomerName}},

Unfortunately {{.ApartmentName}} is not available from {{.StartDate}} to {{.EndDate}}.
Your request {{.BookingID}} has been declined. Feel free to choose other dates.
`,
	},
	policies.TemplateCancelled: {
		"Your booking at {{.ApartmentName}} was cancelled",
		`Hello {{.CustomerName}},

Your booking {{.BookingID}} at {{.ApartmentName}} from {{.StartDate}} to {{.EndDate}} has been cancelled.
`,
	},
	policies.TemplateArrival:   {"Your arrival at {{.ApartmentName}}", "{{.Body}}\n"},
	policies.TemplateDeparture: {"Your departure from {{.ApartmentName}}", "{{.Body}}\n"},
	policies.TemplateParking:   {"Parking at {{.ApartmentName}}", "{{.Body}}\n"},
	policies.TemplateContact: {
		"Contact form: {{.Name}}",
		`{{.Name}} <{{.Email}}> wrote:

{{.Message}}
`,
	},
}

// Templates renders the subject and plain text body of every notification.
type Templates struct {
	byName map[string]mailTemplate
}

func NewTemplates() (*Templates, error) {
	t := &Templates{byName: make(map[string]mailTemplate, len(sources))}
	for name, src := range sources {
		subject, err := template.New(name + ".subject").Option("missingkey=error").Parse(src[0])
		if err != nil {
			return nil, fmt.Errorf("mail: parse %s subject: %w", name, err)
		}
		body, err := template.New(name + ".body").Option("missingkey=error").Parse(src[1])
		if err != nil {
			return nil, fmt.Errorf("mail: parse %s body: %w", name, err)
		}
		t.byName[name] = mailTemplate{subject: subject, body: body}
	}
	return t, nil
}

func (t *Templates) Render(n policies.Notification) (subject, body string, err error) {
	tpl, ok := t.byName[n.Template]
	if !ok {
		return "", "", fmt.Errorf("mail: unknown template %q", n.Template)
	}
	var buf bytes.Buffer
	if err := tpl.subject.Execute(&buf, n.Data); err != nil {
		return "", "", fmt.Errorf("mail: render %s subject: %w", n.Template, err)
	}
	subject = strings.TrimSpace(strings.ReplaceAll(buf.String(), "\n", " "))
	buf.Reset()
	if err := tpl.body.Execute(&buf, n.Data); err != nil {
		return "", "", fmt.Errorf("mail: render %s body: %w", n.Template, err)
	}
	return subject, buf.String(), nil
}
