// Package config loads the mqfacade configuration document.
//
// The document is YAML (or JSON, chosen by file extension) with six
// sections: server, logging, broker, pool, pools and cache. Loading expands
// ${VAR} and ${VAR:-default} references, checks the result against the
// embedded JSON schema, overlays it on Default() and runs Validate:
//
//	cfg, path, err := config.Load(flagPath)
//	if err != nil {
//	    return err
//	}
//
// The path comes from the flag, then MQFACADE_CONFIG, then
// config/config.yaml. Only a missing default file falls back to Default().
//
// Example:
//
//	server:
//	  port: 1892
//	pool:
//	  maxPerEndpoint: 8
//	  maxWait: 10s
//	pools:
//	  - poolName: mq8
//	    host: ${MQ_HOST:-10.0.0.5}
//	    channel: SYSTEM.DEF.SVRCONN
//	    port: 1414
//	cache:
//	  stats: true
//	  caches:
//	    queueDepth: maximumSize=4096,expireAfterWrite=15s
package config
