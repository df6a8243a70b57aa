package scraper

import (
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/stealth"
)

// override is one anti-automation patch evaluated at document creation,
// before any page script runs.
type override struct {
	name string
	js   string
}

// overrides is the declarative anti-automation profile applied on top of
// the stealth payload. Extending the profile means appending an entry.
var overrides = []override{
	{
		name: "webdriver",
		js:   `Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`,
	},
	{
		name: "languages",
		js:   `Object.defineProperty(navigator, 'languages', {get: () => ['en-US', 'en']})`,
	},
	{
		name: "plugins",
		js:   `Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3, 4, 5]})`,
	},
	{
		name: "chrome-runtime",
		js:   `window.chrome = window.chrome || {}; window.chrome.runtime = window.chrome.runtime || {}`,
	},
	{
		name: "permissions-query",
		js: `const origQuery = window.navigator.permissions.query.bind(window.navigator.permissions);
window.navigator.permissions.query = (parameters) =>
	parameters.name === 'notifications'
		? Promise.resolve({state: Notification.permission})
		: origQuery(parameters)`,
	},
}

// buildOverrideScript assembles the profile into one init script. Each
// patch is isolated so a failing one cannot disable the rest.
func buildOverrideScript() string {
	var b strings.Builder
	b.WriteString("(() => {\n")
	for _, o := range overrides {
		fmt.Fprintf(&b, "try { %s; } catch (e) { /* %s */ }\n", o.js, o.name)
	}
	b.WriteString("})();")
	return b.String()
}

// installStealth injects the stealth payload and the override profile.
// Must run before the first navigation; documents already created are not
// affected.
func installStealth(page *rod.Page) error {
	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		return err
	}
	_, err := page.EvalOnNewDocument(buildOverrideScript())
	return err
}
