package mailer

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Template names one of the kinds in pkg/mailer/templates; Data carries the
// rendering variables built by that package.
type EmailJob struct {
	To       string         `json:"to"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data,omitempty"`
}
