// Package config provides configuration parsing for the reactor host.
//
// The configuration is stored in reactor.json. Every field can be overridden
// with a REACTOR_* environment variable.
//
// # Configuration File Structure
//
//	{
//	  "runtime": {
//	    "maxDrainRuns": 10000,
//	    "logDrains": true
//	  },
//	  "host": {
//	    "tickInterval": "16ms"
//	  },
//	  "inspect": {
//	    "addr": "localhost:7070"
//	  },
//	  "journal": {
//	    "path": "reactor.db"
//	  },
//	  "snapshot": {
//	    "dir": "snapshots",
//	    "s3": {"bucket": "my-bucket", "region": "eu-west-1"}
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	rt := reactor.New(cfg.RuntimeOptions()...)
package config
