package e2etest

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// FindForm returns the form of doc posting to action.
func FindForm(doc *goquery.Document, action string) (*goquery.Selection, error) {
	form := doc.Find(fmt.Sprintf("form[action='%s']", action))
	if form.Length() == 0 {
		return nil, fmt.Errorf("form not found: %s", action)
	}
	return form, nil
}

// FindInputForLabel returns the input or textarea a label of form refers to, either through its for attribute or
// by wrapping it. The questionnaire wraps its radio and checkbox inputs in their labels.
func FindInputForLabel(form *goquery.Selection, labelText string) (*goquery.Selection, error) {
	label := form.Find(fmt.Sprintf("label:contains(%q)", labelText)).First()
	if label.Length() == 0 {
		return nil, fmt.Errorf("label not found: %s", labelText)
	}

	input := label.Find("input,textarea")
	if id, ok := label.Attr("for"); ok {
		input = form.Find(fmt.Sprintf("input#%s,textarea#%s", id, id))
	}
	if input.Length() == 0 {
		return nil, fmt.Errorf("input not found for label: %s", labelText)
	}
	return input.First(), nil
}

// CheckedValues returns the values of the checked radio buttons or checkboxes named name in doc.
func CheckedValues(doc *goquery.Document, name string) []string {
	var values []string
	doc.Find(fmt.Sprintf("input[name='%s'][checked]", name)).Each(func(_ int, input *goquery.Selection) {
		if value, ok := input.Attr("value"); ok {
			values = append(values, value)
		}
	})
	return values
}
