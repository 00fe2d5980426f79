package gpio

import "github.com/rs/zerolog"

// LoggingActuator logs every switching operation at info level before
// delegating to the wrapped actuator.
type LoggingActuator struct {
	Actuator
	log zerolog.Logger
}

// WithLogging wraps a so that On, Off and Toggle are logged.
func WithLogging(a Actuator, logger zerolog.Logger) *LoggingActuator {
	return &LoggingActuator{Actuator: a, log: logger}
}

// On logs and turns the ice tower on.
func (l *LoggingActuator) On() error {
	l.log.Info().Msg("ON ice tower")
	return l.Actuator.On()
}

// Off logs and turns the ice tower off.
func (l *LoggingActuator) Off() error {
	l.log.Info().Msg("OFF ice tower")
	return l.Actuator.Off()
}

// Toggle logs and flips the ice tower.
func (l *LoggingActuator) Toggle() error {
	l.log.Info().Msg("TOGGLE ice tower")
	return l.Actuator.Toggle()
}
