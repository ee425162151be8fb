package appconf

import "strings"

// Environment is the operating environment of the generator.
type Environment int

const (
	Development Environment = iota
	Test
	Production
)

func (e Environment) String() string {
	switch e {
	case Test:
		return "test"
	case Production:
		return "production"
	default:
		return "development"
	}
}

// EnvFlagToEnvironment converts the -env flag value into an Environment.
// Unknown values select Development.
func EnvFlagToEnvironment(env string) Environment {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "test":
		return Test
	case "production", "prod":
		return Production
	default:
		return Development
	}
}

// UnmarshalText lets the environment be set from YAML.
func (e *Environment) UnmarshalText(text []byte) error {
	*e = EnvFlagToEnvironment(string(text))
	return nil
}
