// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bytes"
	"text/template"
	"time"

	"github.com/pdiddy/evidence-engine/internal/search"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// reportPromptTmpl asks the model to answer the question from the numbered
// quotes only, citing them inline as [i].
var reportPromptTmpl = template.Must(template.New("report").Parse(`Today is {{.AsOf}}.
You have been given the following question:

<question>
{{.Question}}
</question>

After searching the internet, you found the following results.
<internet_search_results>
{{.Context}}</internet_search_results>

Please answer the question using the search results.
Consider the publication dates of the search results relative to today's date when writing your answer.

Please cite your sources inline and use markdown formatting.

Clearly state:
 - whether your response is based on the provided sources or on general knowledge
 - how confident you are in the provided sources
 - the publication date of each source you use

For instance, this quote:
> [1] "SpaceX successfully completed a full flight test of its Starship spacecraft on April 20, 2023"

Would be cited like this:
> SpaceX successfully completed a full flight test of its Starship spacecraft on April 20, 2023 [1].
`))

func renderPrompt(question string, asOf time.Time, quotes []types.Quote) (string, error) {
	var buf bytes.Buffer
	err := reportPromptTmpl.Execute(&buf, struct {
		AsOf     string
		Question string
		Context  string
	}{
		AsOf:     asOf.Format(types.DateLayout),
		Question: question,
		Context:  search.FormatContext(quotes),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
