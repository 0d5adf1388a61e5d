// Package troposphere is a Go version of the Python package and provides Go
// primitives for building CloudFormation templates.
package troposphere

import "fmt"

// Template represents a CloudFormation template that can be built.
type Template struct {
	Description string                 `json:"Description,omitempty"`
	Conditions  map[string]interface{} `json:"Conditions"`
	Outputs     map[string]Output      `json:"Outputs"`
	Parameters  map[string]Parameter   `json:"Parameters"`
	Resources   map[string]Resource    `json:"Resources"`
}

// NewTemplate returns an initialized Template.
func NewTemplate() *Template {
	return &Template{
		Conditions: make(map[string]interface{}),
		Outputs:    make(map[string]Output),
		Parameters: make(map[string]Parameter),
		Resources:  make(map[string]Resource),
	}
}

// DuplicateResourceError is returned when two resources are added to a
// template under the same logical name.
type DuplicateResourceError struct {
	Name string
}

func (e *DuplicateResourceError) Error() string {
	return fmt.Sprintf("%s is already defined in the template", e.Name)
}

// AddResource adds a named resource to the template, returning a
// DuplicateResourceError if the logical name is taken.
func (t *Template) AddResource(resource NamedResource) error {
	if _, ok := t.Resources[resource.Name]; ok {
		return &DuplicateResourceError{Name: resource.Name}
	}
	t.Resources[resource.Name] = resource.Resource
	return nil
}

// AddOutput adds a named output to the template.
func (t *Template) AddOutput(name string, output Output) error {
	if _, ok := t.Outputs[name]; ok {
		return &DuplicateResourceError{Name: name}
	}
	t.Outputs[name] = output
	return nil
}

// Parameter represents a CloudFormation parameter.
type Parameter struct {
	Type        interface{} `json:"Type,omitempty"`
	Description interface{} `json:"Description,omitempty"`
	Default     interface{} `json:"Default,omitempty"`
}

// Export controls cross stack exporting of an output.
type Export struct {
	Name interface{} `json:"Name,omitempty"`
}

// Output represents a CloudFormation output.
type Output struct {
	Description interface{} `json:"Description,omitempty"`
	Value       interface{} `json:"Value,omitempty"`
	Export      *Export     `json:"Export,omitempty"`
}

// Resource represents a CloudFormation Resource.
type Resource struct {
	Condition      interface{} `json:"Condition,omitempty"`
	DependsOn      interface{} `json:"DependsOn,omitempty"`
	DeletionPolicy interface{} `json:"DeletionPolicy,omitempty"`
	Metadata       interface{} `json:"Metadata,omitempty"`
	Properties     interface{} `json:"Properties,omitempty"`
	Type           interface{} `json:"Type,omitempty"`
	Version        interface{} `json:"Version,omitempty"`
}

// NamedResource bundles a resource to a name.
type NamedResource struct {
	Name     string
	Resource Resource
}
