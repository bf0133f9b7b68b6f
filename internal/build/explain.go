package build

import (
	"regexp"
	"strings"

	foundationerrors "git.home.luguber.info/inful/mdxbuilder/internal/foundation/errors"
)

// Explanation is long-form guidance for a known toolchain failure.
type Explanation struct {
	Summary string
	Hint    string
}

type explainRule struct {
	pattern *regexp.Regexp
	explain Explanation
}

var explainRules = []explainRule{
	{
		regexp.MustCompile(`Could not resolve "(react|react-dom)[^"]*"`),
		Explanation{
			Summary: "React could not be found",
			Hint:    "React is installed automatically unless [deps] manager = \"none\". Run `npm install react react-dom` in the project, or remove the manager override.",
		},
	},
	{
		regexp.MustCompile(`Could not resolve "([^"]+)"`),
		Explanation{
			Summary: "an import could not be resolved",
			Hint:    "Check the import path for typos. Packages must be installed in the project (npm install <package>) or listed under [deps] packages.",
		},
	},
	{
		regexp.MustCompile(`The .style. prop expects a mapping from style properties to values, not a string`),
		Explanation{
			Summary: "an HTML-style attribute was passed to a component",
			Hint:    "Components take JSX attributes: write style={{ color: \"red\" }} instead of style=\"color: red\", and className instead of class.",
		},
	},
	{
		regexp.MustCompile(`Invalid DOM property .(class|for|tabindex|readonly|maxlength|colspan|rowspan)`),
		Explanation{
			Summary: "an HTML-style attribute isn't valid in JSX",
			Hint:    "Use the JSX attribute names: className, htmlFor, tabIndex, readOnly, maxLength, colSpan, rowSpan.",
		},
	},
	{
		regexp.MustCompile(`Unexpected closing tag|expected a closing tag for|Expected ">" but found`),
		Explanation{
			Summary: "a tag in the content is not closed",
			Hint:    "Every component and HTML tag must be closed: <Counter /> or <Note>...</Note>. Void elements need a slash: <br />, <img ... />.",
		},
	},
	{
		regexp.MustCompile(`(window|document|localStorage|navigator) is not defined`),
		Explanation{
			Summary: "a component used a browser-only global during server rendering",
			Hint:    "With SSG enabled components are rendered in node first. Move browser access into useEffect, or build without --ssg.",
		},
	},
	{
		regexp.MustCompile(`(tailwindcss|@tailwindcss/cli)[^\n]*(not found|ENOENT|executable file not found)`),
		Explanation{
			Summary: "the Tailwind CLI is not installed",
			Hint:    "Run `npm install -D tailwindcss @tailwindcss/cli`, or set [css] command = \"none\" to copy the stylesheet unprocessed.",
		},
	},
}

// Explain matches output against the known failure signatures.
func Explain(output string) (Explanation, bool) {
	for _, r := range explainRules {
		if r.pattern.MatchString(output) {
			return r.explain, true
		}
	}
	return Explanation{}, false
}

// toolchainFailure builds the error for a failed external tool. Known
// signatures are replaced with their explanation; the raw log stays
// attached as context.
func toolchainFailure(tool string, logs []string, cause error) error {
	raw := strings.TrimSpace(strings.Join(append(append([]string(nil), logs...), causeOutput(cause)), "\n"))
	output := raw
	if cause != nil {
		output = strings.TrimSpace(output + "\n" + cause.Error())
	}

	if ex, ok := Explain(output); ok {
		b := foundationerrors.ToolchainError(tool+": "+ex.Summary).
			WithHint(ex.Hint).
			WithContext("output", output)
		if cause != nil {
			b = b.WithCause(cause)
		}
		return b.Build()
	}

	msg := tool + " failed"
	if raw != "" {
		msg = msg + ":\n" + raw
	}
	b := foundationerrors.ToolchainError(msg).WithContext("output", output)
	if cause != nil {
		b = b.WithCause(cause)
	}
	return b.Build()
}

// causeOutput returns the first raw tool output attached to a classified
// error in cause's chain.
func causeOutput(cause error) string {
	for err := cause; err != nil; {
		ce, ok := foundationerrors.AsClassified(err)
		if !ok {
			return ""
		}
		if s, ok := ce.Context().GetString("output"); ok && s != "" {
			return s
		}
		err = ce.Unwrap()
	}
	return ""
}
