package login

import (
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"sort"
	"time"
)

// cookieJar is a file-backed cookie store for the IdP session. One jar file
// exists per username; it is what lets the refresh daemon skip interactive
// authentication.
//
// The stdlib jar strips attributes from Cookies(), so the jar records the
// full attribute set as cookies arrive and persists that. A cookie whose
// expiry has passed is dropped instead of being replayed to the IdP.
type cookieJar struct {
	jar     *cookiejar.Jar
	path    string
	entries map[string]jarEntry
}

type jarEntry struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain,omitempty"`
	Path     string    `json:"path,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
}

func (e jarEntry) key() string {
	return e.Domain + ";" + e.Path + ";" + e.Name
}

func (e jarEntry) expired(now time.Time) bool {
	return !e.Expires.IsZero() && e.Expires.Before(now)
}

func newCookieJar(path string) (*cookieJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{})
	if err != nil {
		return nil, err
	}
	return &cookieJar{jar: jar, path: path, entries: map[string]jarEntry{}}, nil
}

func (c *cookieJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	c.jar.SetCookies(u, cookies)

	for _, ck := range cookies {
		e := jarEntry{
			Name:     ck.Name,
			Value:    ck.Value,
			Domain:   ck.Domain,
			Path:     ck.Path,
			Expires:  ck.Expires,
			Secure:   ck.Secure,
			HttpOnly: ck.HttpOnly,
		}
		if len(e.Domain) == 0 {
			e.Domain = u.Hostname()
		}
		if len(e.Path) == 0 {
			e.Path = "/"
		}
		if ck.MaxAge > 0 {
			e.Expires = time.Now().Add(time.Duration(ck.MaxAge) * time.Second)
		}
		if ck.MaxAge < 0 {
			delete(c.entries, e.key())
			continue
		}
		c.entries[e.key()] = e
	}
}

func (c *cookieJar) Cookies(u *url.URL) []*http.Cookie {
	return c.jar.Cookies(u)
}

// load reads the jar file back into the in-memory jar. The caller decides
// whether a missing file is fatal; os.IsNotExist holds on that error.
func (c *cookieJar) load(u *url.URL) error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return err
	}

	var entries []jarEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}

	now := time.Now()
	cookies := make([]*http.Cookie, 0, len(entries))
	for _, e := range entries {
		if e.expired(now) {
			continue
		}
		c.entries[e.key()] = e
		ck := &http.Cookie{
			Name:     e.Name,
			Value:    e.Value,
			Path:     e.Path,
			Expires:  e.Expires,
			Secure:   e.Secure,
			HttpOnly: e.HttpOnly,
		}
		// A stored domain matching the endpoint host means the cookie was
		// host-only; setting Domain would widen it to subdomains.
		if e.Domain != u.Hostname() {
			ck.Domain = e.Domain
		}
		cookies = append(cookies, ck)
	}
	c.jar.SetCookies(u, cookies)
	return nil
}

// save persists the session cookies with their attributes. The file is
// created with owner-only permissions and replaced atomically.
func (c *cookieJar) save(u *url.URL) error {
	now := time.Now()
	keys := make([]string, 0, len(c.entries))
	for k, e := range c.entries {
		if e.expired(now) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]jarEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, c.entries[k])
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}

	if err := secureTouch(c.path); err != nil {
		return err
	}

	return storeFile(c.path, func(filename string) error {
		return os.WriteFile(filename, data, 0600)
	})
}
