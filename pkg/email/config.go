package email

// Driver names accepted in EMAIL_DRIVER.
const (
	DriverPostmark = "postmark"
	DriverDev      = "dev"
	DriverNone     = "none"
)

// Config holds email delivery settings. Postmark tokens are only required
// with the postmark driver.
type Config struct {
	Driver               string `env:"EMAIL_DRIVER" envDefault:"dev"`
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"no-reply@rafiki-assist.app"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@rafiki-assist.app"`
	DevDir               string `env:"EMAIL_DEV_DIR" envDefault:"./tmp/emails"`
}
