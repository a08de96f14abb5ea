package miniapp

import "strings"

// AccountAssociation proves domain ownership to Farcaster clients.
type AccountAssociation struct {
	Header    string `json:"header"`
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
}

// Manifest is the document served at /.well-known/farcaster.json.
type Manifest struct {
	AccountAssociation *AccountAssociation `json:"accountAssociation,omitempty"`
	MiniApp            MiniApp             `json:"miniapp"`
}

type MiniApp struct {
	Version               string   `json:"version"`
	Name                  string   `json:"name"`
	Subtitle              string   `json:"subtitle"`
	Description           string   `json:"description"`
	ScreenshotURLs        []string `json:"screenshotUrls"`
	IconURL               string   `json:"iconUrl"`
	SplashImageURL        string   `json:"splashImageUrl"`
	SplashBackgroundColor string   `json:"splashBackgroundColor"`
	HomeURL               string   `json:"homeUrl"`
	WebhookURL            string   `json:"webhookUrl"`
	PrimaryCategory       string   `json:"primaryCategory"`
	Tags                  []string `json:"tags"`
	HeroImageURL          string   `json:"heroImageUrl"`
	Tagline               string   `json:"tagline"`
	OGTitle               string   `json:"ogTitle"`
	OGDescription         string   `json:"ogDescription"`
	OGImageURL            string   `json:"ogImageUrl"`
	NoIndex               bool     `json:"noindex"`
}

// ManifestConfig is the deploy-specific part of the manifest.
type ManifestConfig struct {
	RootURL   string
	Header    string
	Payload   string
	Signature string
}

// BuildManifest derives the manifest from cfg. The account association is
// included only when header, payload and signature are all set.
func BuildManifest(cfg ManifestConfig) Manifest {
	root := strings.TrimRight(cfg.RootURL, "/")
	if root == "" {
		root = "http://localhost:3000"
	}

	m := Manifest{
		MiniApp: MiniApp{
			Version:               "1",
			Name:                  "ReframeCaster",
			Subtitle:              "Bring positivity to your words, effortlessly",
			Description:           "Make your words more positive and friendly",
			ScreenshotURLs:        []string{root + "/screenshot.png"},
			IconURL:               root + "/icon-dark.png",
			SplashImageURL:        root + "/splash.png",
			SplashBackgroundColor: "#FFFFFF",
			HomeURL:               root,
			WebhookURL:            root + "/api/webhook",
			PrimaryCategory:       "social",
			Tags:                  []string{"ai", "positivity", "reframe", "writing", "language"},
			HeroImageURL:          root + "/hero.png",
			Tagline:               "Turn Negativity Into Positivity",
			OGTitle:               "ReframeCaster",
			OGDescription:         "Make your words more positive and friendly",
			OGImageURL:            root + "/hero.png",
		},
	}

	if cfg.Header != "" && cfg.Payload != "" && cfg.Signature != "" {
		m.AccountAssociation = &AccountAssociation{
			Header:    cfg.Header,
			Payload:   cfg.Payload,
			Signature: cfg.Signature,
		}
	}
	return m
}
