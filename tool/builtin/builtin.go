package builtin

import "github.com/hupe1980/agentstudio/tool"

// Factories returns the factories of every built-in tool in registration order.
func Factories() []tool.Factory {
	return []tool.Factory{NewCalculator, NewWebScraper}
}

// Register adds every built-in tool to r.
func Register(r *tool.Registry) error {
	for _, f := range Factories() {
		if err := r.Register(f); err != nil {
			return err
		}
	}
	return nil
}

// Aliases maps agent-facing tool names to registry ids.
func Aliases() map[string]string {
	return map[string]string{
		"webScraper": WebScraperID,
		"calculator": CalculatorID,
	}
}
