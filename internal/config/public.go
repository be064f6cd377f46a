package config

import (
	"errors"
	"net/url"
	"strings"

	"github.com/joeshaw/envdecode"
)

// Public is the runtime config exposed to browsers. Nothing secret belongs here.
type Public struct {
	APIv1           string `env:"APIv1,default=https://fdapilive.ilovefreegle.org/api" json:"APIv1"`
	APIv2           string `env:"APIv2,default=https://api.ilovefreegle.org/apiv2" json:"APIv2"`
	OSMTile         string `env:"OSM_TILE,default=https://tiles.ilovefreegle.org/tile/{z}/{x}/{y}.png" json:"OSM_TILE"`
	Geocode         string `env:"GEOCODE,default=https://photon.komoot.io/api" json:"GEOCODE"`
	FacebookAppID   string `env:"FACEBOOK_APPID" json:"FACEBOOK_APPID"`
	YahooClientID   string `env:"YAHOO_CLIENTID" json:"YAHOO_CLIENTID"`
	GoogleMapsKey   string `env:"GOOGLE_MAPS_KEY" json:"GOOGLE_MAPS_KEY"`
	GoogleAPIKey    string `env:"GOOGLE_API_KEY" json:"GOOGLE_API_KEY"`
	GoogleClientID  string `env:"GOOGLE_CLIENT_ID" json:"GOOGLE_CLIENT_ID"`
	UserSite        string `env:"USER_SITE,default=https://www.ilovefreegle.org" json:"USER_SITE"`
	ImageSite       string `env:"IMAGE_SITE,default=https://images.ilovefreegle.org" json:"IMAGE_SITE"`
	SentryDSN       string `env:"SENTRY_DSN" json:"SENTRY_DSN"`
	BuildDate       string `env:"BUILD_DATE" json:"BUILD_DATE"`
	NetlifyDeployID string `env:"DEPLOY_ID" json:"NETLIFY_DEPLOY_ID"`
	NetlifySiteName string `env:"SITE_NAME" json:"NETLIFY_SITE_NAME"`
	MatomoHost      string `env:"MATOMO_HOST" json:"MATOMO_HOST"`
	CookieYes       string `env:"COOKIEYES" json:"COOKIEYES"`
	DeployURL       string `env:"DEPLOY_URL" json:"-"`
}

// LoadPublic reads the public config from the environment.
func LoadPublic() (*Public, error) {
	p := &Public{}
	if err := envdecode.Decode(p); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, err
	}
	return p, nil
}

// Vars maps placeholder names to values, keyed like the environment.
func (p *Public) Vars() map[string]string {
	return map[string]string{
		"APIv1":             p.APIv1,
		"APIv2":             p.APIv2,
		"OSM_TILE":          p.OSMTile,
		"GEOCODE":           p.Geocode,
		"FACEBOOK_APPID":    p.FacebookAppID,
		"YAHOO_CLIENTID":    p.YahooClientID,
		"GOOGLE_MAPS_KEY":   p.GoogleMapsKey,
		"GOOGLE_API_KEY":    p.GoogleAPIKey,
		"GOOGLE_CLIENT_ID":  p.GoogleClientID,
		"USER_SITE":         p.UserSite,
		"IMAGE_SITE":        p.ImageSite,
		"SENTRY_DSN":        p.SentryDSN,
		"BUILD_DATE":        p.BuildDate,
		"NETLIFY_DEPLOY_ID": p.NetlifyDeployID,
		"NETLIFY_SITE_NAME": p.NetlifySiteName,
		"MATOMO_HOST":       p.MatomoHost,
		"COOKIEYES":         p.CookieYes,
	}
}

// CDNURL is the prefix assets are served below. Deploys pin assets to their permalink so a new
// deploy cannot break pages that are still loading chunks.
func (p *Public) CDNURL() string {
	if p.DeployURL == "" {
		return ""
	}

	host := p.DeployURL
	if u, err := url.Parse(p.DeployURL); err == nil && u.Host != "" {
		host = u.Host + strings.TrimSuffix(u.Path, "/")
	}

	return "/netlify/" + host
}
