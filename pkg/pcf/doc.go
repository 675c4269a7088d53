// Package pcf is the boundary to the broker's administrative command
// protocol (Programmable Command Format).
//
// Commands, parameters and enumerated values are named symbolically
// ("MQCMD_INQUIRE_Q_STATUS", "MQCA_Q_NAME", "MQQT_LOCAL"). The IBM MQ
// transport, compiled in with the build tags cgo and ibm_mq, maps them to
// the numeric constants of github.com/ibm-messaging/mq-golang. Without
// those tags NewDialer returns a dialer that always fails; tests use the
// in-memory broker in pcftest.
package pcf
