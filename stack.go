package ecsdeploy

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/remind101/ecsdeploy/pkg/troposphere"
)

// ErrAttributeUnresolved is returned from Attribute.Value before the stack
// has been applied.
var ErrAttributeUnresolved = errors.New("attribute is not resolved until the stack is applied")

// Attribute is a handle to an attribute of a registered custom resource. Its
// value is not known when the stack is defined; it gets resolved from the
// stack's outputs after Applier.Apply completes.
type Attribute struct {
	logicalID string
	name      string
	outputKey string

	mu       sync.Mutex
	resolved bool
	value    string
}

// GetAtt returns the Fn::GetAtt form of the attribute, for consumers within
// the same template.
func (a *Attribute) GetAtt() interface{} {
	return troposphere.GetAtt(a.logicalID, a.name)
}

// Value returns the resolved value, or ErrAttributeUnresolved if the stack
// has not been applied yet.
func (a *Attribute) Value() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.resolved {
		return "", ErrAttributeUnresolved
	}
	return a.value, nil
}

func (a *Attribute) resolve(value string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.resolved = true
	a.value = value
}

// DuplicateDeploymentError is returned when a second deployment is defined
// against a deployment group that already has one.
type DuplicateDeploymentError struct {
	ApplicationName     string
	DeploymentGroupName string
}

func (e *DuplicateDeploymentError) Error() string {
	return fmt.Sprintf("a deployment is already defined for deployment group %s/%s", e.ApplicationName, e.DeploymentGroupName)
}

// Stack collects the resources that a set of deployments define, and emits
// them as a CloudFormation template. It stands in for a full identity tree;
// collisions are caught by explicit registries instead.
type Stack struct {
	// Name is used as the CloudFormation stack name.
	Name string

	template    *troposphere.Template
	attributes  []*Attribute
	deployments map[string]*Deployment
	providers   map[string]*Provider
}

// NewStack returns an empty Stack with the given name.
func NewStack(name string) *Stack {
	return &Stack{
		Name:        name,
		template:    troposphere.NewTemplate(),
		deployments: make(map[string]*Deployment),
		providers:   make(map[string]*Provider),
	}
}

// Template returns the underlying template.
func (s *Stack) Template() *troposphere.Template {
	return s.template
}

// Synth marshals the template to JSON.
func (s *Stack) Synth() ([]byte, error) {
	return json.MarshalIndent(s.template, "", "  ")
}

// addResource adds a resource to the template under the given logical id.
func (s *Stack) addResource(logicalID string, resource troposphere.Resource) error {
	return s.template.AddResource(troposphere.NamedResource{
		Name:     logicalID,
		Resource: resource,
	})
}

// addCustomResource registers a custom resource carrying the given
// properties, targeted at serviceToken, and returns a deferred handle to the
// named attribute. An output is added per attribute so apply can resolve it.
func (s *Stack) addCustomResource(logicalID, resourceType string, serviceToken interface{}, properties map[string]string, attribute string) (*Attribute, error) {
	props := map[string]interface{}{
		"ServiceToken": serviceToken,
	}
	for k, v := range properties {
		props[k] = v
	}

	err := s.addResource(logicalID, troposphere.Resource{
		Type:       resourceType,
		Properties: props,
	})
	if err != nil {
		return nil, err
	}

	attr := &Attribute{
		logicalID: logicalID,
		name:      attribute,
		outputKey: logicalID + exportName(attribute),
	}
	err = s.template.AddOutput(attr.outputKey, troposphere.Output{
		Value: attr.GetAtt(),
	})
	if err != nil {
		return nil, err
	}
	s.attributes = append(s.attributes, attr)

	return attr, nil
}

// resolveAttributes fills in every registered attribute from the applied
// stack's outputs.
func (s *Stack) resolveAttributes(outputs map[string]string) error {
	for _, attr := range s.attributes {
		value, ok := outputs[attr.outputKey]
		if !ok {
			return fmt.Errorf("stack %s has no output %s", s.Name, attr.outputKey)
		}
		attr.resolve(value)
	}
	return nil
}

// exportName upcases the first letter of an attribute name so it can be used
// within a logical output key.
func exportName(attribute string) string {
	if attribute == "" {
		return ""
	}
	return strings.ToUpper(attribute[:1]) + attribute[1:]
}

// logicalID builds a CloudFormation safe logical id from the given parts by
// stripping anything outside [a-zA-Z0-9] and upcasing the letter that follows
// a part boundary or a stripped character.
func logicalID(parts ...string) string {
	var b strings.Builder
	for _, part := range parts {
		first := true
		for _, r := range part {
			switch {
			case r >= 'a' && r <= 'z':
				if first {
					r = r - 'a' + 'A'
				}
				b.WriteRune(r)
				first = false
			case r >= 'A' && r <= 'Z' || r >= '0' && r <= '9':
				b.WriteRune(r)
				first = false
			default:
				first = true
			}
		}
	}
	return b.String()
}
