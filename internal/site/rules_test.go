package site_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"freegle/internal/site"
)

func defaultRules(t *testing.T) *site.Rules {
	t.Helper()

	cfg, err := site.LoadConfig("")
	require.NoError(t, err)
	return site.NewRules(cfg.Routes)
}

func TestRules_Mode(t *testing.T) {
	t.Parallel()

	rules := defaultRules(t)

	cases := map[string]site.Mode{
		"/":                          site.ModePrerender,
		"/about":                     site.ModePrerender,
		"/about/":                    site.ModePrerender,
		"/explore":                   site.ModePrerender,
		"/explore/devon":             site.ModeISR,
		"/explore/region/south-west": site.ModeISR,
		"/unsubscribe":               site.ModePrerender,
		"/unsubscribe/abc123":        site.ModePrerender,
		"/chats":                     site.ModeClient,
		"/chats/123":                 site.ModeClient,
		"/chitchat/55?src=email":     site.ModeClient,
		"/jobs":                      site.ModeClient,
		"/message/123":               site.ModeISR,
		"/shortlink/abc":             site.ModeISR,
		"/give/whereami":             site.ModeSSR,
		"/unknown":                   site.ModeSSR,
	}

	for path, want := range cases {
		require.Equal(t, want, rules.Match(path).Mode(), path)
	}
}

func TestRules_TTL(t *testing.T) {
	t.Parallel()

	rules := defaultRules(t)

	require.Equal(t, 600*time.Second, rules.Match("/message/1").TTL())
	require.Equal(t, time.Hour, rules.Match("/story/1").TTL())
	require.Zero(t, rules.Match("/about").TTL())
}

func TestRules_Headers(t *testing.T) {
	t.Parallel()

	rules := defaultRules(t)

	headers := rules.Match("/_nuxt/entry.abc.js").Headers
	require.Equal(t, "*", headers["Access-Control-Allow-Origin"])
	require.Contains(t, headers["Access-Control-Allow-Headers"], "Authorization")

	require.Empty(t, rules.Match("/about").Headers)
}

func TestRules_Merge(t *testing.T) {
	t.Parallel()

	yes, no, ttl := true, false, 60

	rules := site.NewRules(map[string]site.Rule{
		"/**":           {Headers: map[string]string{"X-Frame-Options": "DENY"}},
		"/shop/**":      {ISR: &ttl, Headers: map[string]string{"X-Shop": "1"}},
		"/shop/*/about": {Static: &yes},
		"/shop/cart":    {SSR: &no},
	})

	cart := rules.Match("/shop/cart")
	require.Equal(t, site.ModeClient, cart.Mode())
	require.Equal(t, map[string]string{"X-Frame-Options": "DENY", "X-Shop": "1"}, cart.Headers)

	require.Equal(t, site.ModeStatic, rules.Match("/shop/bikes/about").Mode())
	require.Equal(t, site.ModeISR, rules.Match("/shop/bikes/about/more").Mode())
	require.Equal(t, site.ModeISR, rules.Match("/shop//about").Mode())
	require.Equal(t, site.ModeSSR, rules.Match("/").Mode())
}

func TestRules_Prerendered(t *testing.T) {
	t.Parallel()

	routes := defaultRules(t).Prerendered()

	require.Contains(t, routes, "/")
	require.Contains(t, routes, "/explore")
	require.Contains(t, routes, "/unsubscribe")
	require.NotContains(t, routes, "/unsubscribe**")
	require.NotContains(t, routes, "/chats/**")
	require.Len(t, routes, 14)
}
