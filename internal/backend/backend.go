// Package backend implements the mock external systems the concierge agent
// operates on: orders, appointments, the product and policy knowledge base,
// and customer profiles. Each backend exposes its operations as agent tools.
package backend

import "fmt"

func stringArg(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", fmt.Errorf("missing required argument: %s", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %s must be a string", name)
	}
	return s, nil
}
