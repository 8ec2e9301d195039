package scm

import (
	"bytes"
	"sort"
	"strconv"
	"text/template"

	"github.com/drewdunne/scmpoll/internal/provider"
)

var viewTemplate = template.Must(template.New("scm-view").Parse(`{{range .}}<div class="form_item_block">
  <label>{{.DisplayName}}:{{if .Required}}<span class="asterix">*</span>{{end}}</label>
  <input type="{{if .Secure}}password{{else}}text{{end}}" ng-model="{{.Key}}" ng-required="{{.Required}}"/>
  <span class="form_error" ng-show="GOINPUTNAME[{{.Key}}].$error.server">{{"{{"}}GOINPUTNAME[{{.Key}}].$error.server{{"}}"}}</span>
</div>
{{end}}`))

// View is the body of scm-view.
type View struct {
	DisplayValue string `json:"displayValue"`
	Template     string `json:"template"`
}

// RenderView renders the configuration form for a field set, in display
// order.
func RenderView(displayName string, fields provider.FieldSet) (*View, error) {
	named := make([]provider.NamedField, 0, len(fields))
	for k, f := range fields {
		named = append(named, provider.NamedField{Key: k, Field: f})
	}
	sort.Slice(named, func(i, j int) bool {
		a, _ := strconv.Atoi(named[i].DisplayOrder)
		b, _ := strconv.Atoi(named[j].DisplayOrder)
		return a < b
	})

	var buf bytes.Buffer
	if err := viewTemplate.Execute(&buf, named); err != nil {
		return nil, err
	}
	return &View{DisplayValue: displayName, Template: buf.String()}, nil
}
