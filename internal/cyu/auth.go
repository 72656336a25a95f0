package cyu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

var (
	verificationTokenRe = regexp.MustCompile(`<input name="__RequestVerificationToken" type="hidden" value="([^"]+)" />`)
	federationIDRe      = regexp.MustCompile(`var federationIdStr = '(.*?)';`)
)

type Infos struct {
	FederationID string `json:"federationId"`
	DisplayName  string `json:"displayName"`
}

// Login returns the session cookie string to pass to the other calls.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	resp, err := c.get(ctx, "login_page", "/calendar/LdapLogin", "")
	if err != nil {
		return "", err
	}
	pageCookie := resp.Header.Get("Set-Cookie")
	page, err := c.readBody(resp)
	if err != nil {
		return "", err
	}
	if pageCookie == "" {
		return "", fmt.Errorf("%w: login page set no cookie", ErrRemote)
	}
	match := verificationTokenRe.FindSubmatch(page)
	if match == nil {
		return "", fmt.Errorf("%w: verification token not found", ErrRemote)
	}

	form := url.Values{
		"Name":                       []string{username},
		"Password":                   []string{password},
		"__RequestVerificationToken": []string{string(match[1])},
	}
	resp, err = c.postForm(ctx, "logon", "/calendar/LdapLogin/Logon", pageCookie, form)
	if err != nil {
		return "", err
	}
	if _, err = c.readBody(resp); err != nil {
		return "", err
	}
	if resp.StatusCode < http.StatusMultipleChoices || resp.StatusCode >= http.StatusBadRequest {
		return "", ErrUnauthorized
	}
	return strings.Join(resp.Header.Values("Set-Cookie"), ";"), nil
}

func (c *Client) Infos(ctx context.Context, session string) (Infos, error) {
	resp, err := c.get(ctx, "home_page", "/calendar", session)
	if err != nil {
		return Infos{}, err
	}
	page, err := c.readBody(resp)
	if err != nil {
		return Infos{}, err
	}
	match := federationIDRe.FindSubmatch(page)
	if match == nil {
		return Infos{}, ErrUnauthorized
	}
	federationID := string(match[1])

	form := url.Values{
		"federationIds[]": []string{federationID},
		"resType":         []string{resType},
	}
	resp, err = c.postForm(ctx, "display_names", "/calendar/Home/LoadDisplayNames", session, form)
	if err != nil {
		return Infos{}, err
	}
	body, err := c.readBody(resp)
	if err != nil {
		return Infos{}, err
	}
	var infos []Infos
	if err = json.Unmarshal(body, &infos); err != nil {
		return Infos{}, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	if len(infos) == 0 {
		return Infos{}, fmt.Errorf("%w: no display name", ErrRemote)
	}
	return infos[0], nil
}
