// Package admin provides the REST API over the query facade.
//
// The admin API serves JSON over plain net/http with Go 1.22 route
// patterns. Every /mq/{mq}/... route accepts either an endpoint key
// ("CHANNEL@host:port", URL-escaped) or a configured pool name, creates
// the instance on first use and answers with the identity headers
// X-Mqfacade-Key, X-Mqfacade-Key-Json and, for named pools,
// X-Mqfacade-Pool.
//
// Errors are classified through mqerr and written as
// {"error": code, "message": msg}; 5xx bodies never carry the broker's
// error text, which is logged server-side instead.
package admin
