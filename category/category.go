// Package category infers an account category from its display name.
package category

import "strings"

// Category groups accounts for display.
type Category string

const (
	All     Category = "All"
	Social  Category = "Social"
	Finance Category = "Finance"
	Gaming  Category = "Gaming"
	Work    Category = "Work"
	Other   Category = "Other"
)

type rule struct {
	category Category
	keywords []string
}

// Rules are checked in order; the first hit wins.
var rules = []rule{
	{Social, []string{
		"facebook", "twitter", "instagram", "linkedin", "reddit", "tiktok",
		"snapchat", "discord", "mastodon", "pinterest", "tumblr", "telegram",
		"whatsapp", "signal", "threads", "bluesky",
	}},
	{Finance, []string{
		"bank", "paypal", "stripe", "coinbase", "binance", "kraken", "venmo",
		"revolut", "wise", "robinhood", "fidelity", "schwab", "crypto",
		"wallet", "visa", "mastercard", "amex",
	}},
	{Gaming, []string{
		"steam", "xbox", "playstation", "psn", "nintendo", "epic games",
		"battle.net", "blizzard", "ubisoft", "origin", "riot", "twitch",
		"gog", "roblox",
	}},
	{Work, []string{
		"slack", "github", "gitlab", "bitbucket", "jira", "atlassian",
		"microsoft", "office", "azure", "aws", "google workspace", "okta",
		"zoom", "notion", "salesforce", "heroku", "digitalocean", "cloudflare",
	}},
}

// Classify returns the category whose keywords appear in name.
func Classify(name string) Category {
	var lower string = strings.ToLower(name)

	for _, r := range rules {
		for _, keyword := range r.keywords {
			if strings.Contains(lower, keyword) {
				return r.category
			}
		}
	}

	return Other
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case All, Social, Finance, Gaming, Work, Other:
		return true
	}

	return false
}
