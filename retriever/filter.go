package retriever

import (
	"context"
	"fmt"
	"strings"

	"github.com/vectoscalar/vsgpt/llm"
	"github.com/vectoscalar/vsgpt/vector"
)

const filterPrompt = `Given the following question and context, return YES if the context is relevant to the question and NO if it isn't.

> Question: %s
> Context:
>>>
%s
>>>
> Relevant (YES / NO):`

// FilterRetriever asks the language model to judge each retrieved passage
// and drops the ones it deems irrelevant. The stage may legitimately
// return zero documents.
type FilterRetriever struct {
	Base  Retriever
	Model llm.Provider
}

func (r *FilterRetriever) Retrieve(ctx context.Context, query string) ([]vector.Document, error) {
	docs, err := r.Base.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}

	kept := make([]vector.Document, 0, len(docs))
	for _, doc := range docs {
		prompt := fmt.Sprintf(filterPrompt, query, doc.Content)

		verdict, err := r.Model.Generate(ctx, prompt, llm.WithTemperature(0))
		if err != nil {
			return nil, err
		}

		if isAffirmative(verdict) {
			kept = append(kept, doc)
		}
	}

	return kept, nil
}

func isAffirmative(verdict string) bool {
	verdict = strings.ToUpper(strings.TrimSpace(verdict))
	return strings.HasPrefix(verdict, "YES")
}
