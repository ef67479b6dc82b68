// Package config provides configuration parsing for Lime projects.
//
// The configuration is stored in lime.json at the project root. Every
// field is optional; missing values take the defaults from New.
//
// # Configuration File Structure
//
//	{
//	  "name": "arena",
//	  "scripts": "scripts",
//	  "frame": {
//	    "limit": 60
//	  },
//	  "network": {
//	    "listen": ":7777",
//	    "path": "/ws",
//	    "verbose": true,
//	    "inboundQueue": 4096,
//	    "outboundQueue": 4096,
//	    "maxPeers": 64,
//	    "heartbeat": "10s"
//	  },
//	  "render": {
//	    "width": 1280,
//	    "height": 720
//	  },
//	  "output": {
//	    "enabled": true,
//	    "file": "output.txt",
//	    "s3": {"bucket": "crash-logs", "region": "us-east-1"}
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
//	d, err := frame.New(cfg.Runtime(), components)
package config
