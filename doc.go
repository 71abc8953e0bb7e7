// Package launch starts an HTTP application from the command line.
//
// # Startup
//
// The command line is parsed into config.Options. The configuration file
// named there (config.ru in the working directory unless given as the last
// argument) describes the application and may add options of its own.
//
// The application is then wrapped into the middleware stack of the selected
// environment:
//
//	deployment:  access log to stderr (left out under CGI handlers)
//	development: as deployment, then exception pages and linting
//
// A server handler is picked by --server, falling back to the platform
// default: FastCGI when started by a FastCGI process manager, CGI when
// started as a CGI script, and the standard net/http server otherwise.
//
// Finally the process detaches into the background if --daemonize is given,
// writes its PID file if --pid is given, and serves the application until it
// receives SIGINT, SIGTERM or SIGHUP.
//
// # Embedding
//
// Programs that need other middleware or handlers build a Bootstrap with New,
// add to its Middleware and Handlers registries and call Start from
// run.Server:
//
//	func main() {
//	    b := launch.New(os.Args[1:])
//	    must.OK(b.Middleware.Use(middleware.Deployment, middleware.Func("CORS", thttp.CORS)))
//	    run.Server(b.Start)
//	}
package launch
