// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package plan

import (
	"bytes"
	"text/template"
	"time"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// planPromptTmpl asks for exactly .Count search inputs wrapped in
// <search_inputs> sentinels after a free-form analysis.
var planPromptTmpl = template.Must(template.New("plan").Parse(`TODAY'S DATE IS {{.AsOf}}

You are an assistant to a superforecaster. The superforecaster will give you a question they intend to forecast on. Your job is to find the most relevant, recent evidence for it. You do not produce forecasts yourself.

You have been given the following question to analyze:
<question>
{{.Question}}
</question>

Generate {{.Count}} web searches that will be useful to answer the question.
Each query must be unique and must not be a variation of another query.

First write your analysis inside <analysis> tags, then provide the JSON output.
Things to consider:
- Take today's date into account when choosing queries and start_published_date.
- The most recent news is usually the most relevant; for topics with abundant coverage, set a reasonable start_published_date.
- Which aspects of the question matter most? Are there several?

Return the searches as a JSON array of objects with this schema:
[
    {
        "web_search_query": "Required. The search query used to find relevant web pages",
        "highlight_query": "Optional. Text to highlight within found documents. Defaults to web_search_query",
        "start_published_date": "Optional. Earliest allowed publication date in ISO format (YYYY-MM-DD). Default: null"
    }
]

Example output:
<analysis>
...
</analysis>
<search_inputs>
[
    {
        "web_search_query": "...",
        "highlight_query": "...",
        "start_published_date": "..."
    }
]
</search_inputs>
`))

// renderPrompt executes the planning prompt template.
func renderPrompt(question string, asOf time.Time, count int) (string, error) {
	var buf bytes.Buffer
	err := planPromptTmpl.Execute(&buf, struct {
		AsOf     string
		Question string
		Count    int
	}{
		AsOf:     asOf.Format(types.DateLayout),
		Question: question,
		Count:    count,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
