// Package endpoint provides the identity of a broker endpoint.
//
// A Key is the (host, port, channel) triple that every other layer uses as
// a map key. Its canonical string form is "<channel>@<host>:<port>", for
// example "SYSTEM.DEF.SVRCONN@10.0.0.5:1414", and its JSON form is
// {"host":"10.0.0.5","port":1414,"channel":"SYSTEM.DEF.SVRCONN"}.
//
// A Descriptor pairs a Key with the name of the sub-pool serving it and the
// PCF wait/expiry settings. Descriptors come from configuration or are
// synthesized with a "Pool#<n>" name for keys requested on demand.
//
// A Directory maps configured pool names to descriptors so that callers can
// address an endpoint by either form.
package endpoint
