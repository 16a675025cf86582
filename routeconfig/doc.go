// Package routeconfig turns declarative configuration into a ready router.
//
// Three pieces cooperate:
//
//   - Config is read from the environment (and an optional .env file) and
//     names the route file, the cache file, the log level and debug mode.
//   - Route files are YAML documents listing route definitions, optionally
//     grouped under a shared path prefix and middleware.
//   - Boot freezes the definitions into a route table, reading the table
//     from the cache file when it was written for the same definitions and
//     rewriting the cache otherwise.
//
// A route file looks like this:
//
//	routes:
//	  - path: /health
//	    target: health
//	groups:
//	  - prefix: /users
//	    middleware:
//	      route_matched: [auth]
//	    routes:
//	      - path: /{id}[/{tab}]
//	        methods: [GET]
//	        name: user.show
//	        target: users.show
//	        params:
//	          id: num
//	          tab: {regex: slug, capture: true}
//
// Targets are resolved through Targets, or any other mux.Resolver, and
// middleware identifiers through a mux.Registry:
//
//	cfg, err := routeconfig.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	r, err := routeconfig.NewRouter(cfg, routeconfig.Options{
//	    Logger:   cfg.Logger(os.Stderr),
//	    Registry: mux.Registry{"auth": authMiddleware},
//	    Resolver: routeconfig.Targets{"health": health, "users.show": showUser},
//	})
package routeconfig
