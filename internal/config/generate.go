package config

// DefaultConfigTOML is a complete, commented sample unitd.toml.
const DefaultConfigTOML = `# unitd configuration file

[runtime]
# engine = "poll"               # event-engine backend
# batch = 32                    # engine batch size
# auxiliary_threads = 2         # per-process auxiliary thread pool size
# pidfile = ""                  # pid file path (default: none)
# daemonize = false             # detach from the terminal on startup
# user = ""                     # run workers as this user (requires root)
# group = ""                    # override the user's primary group
# log_level = "info"            # debug, info, warn, error
# log_format = "json"           # json, text
# logfile = ""                  # daemon log file path (default: stderr)
# log_maxbytes = "50MB"         # rotate the log file at this size
# log_backups = 5               # rotated files to keep

[metrics]
# enabled = false               # serve Prometheus metrics
# listen = "127.0.0.1:9090"     # metrics listen address

# Role definitions
# [roles.router]
# type = "router"               # controller, router, worker, aux
# spawn = "fork"                # fork (in-image) or exec (external binary)
# user = ""                     # per-role credential override
# group = ""
# stream = 0                    # readiness notification stream id
# count = 1                     # number of instances

# [roles.app]
# type = "worker"
# spawn = "exec"
# command = "/usr/bin/app"      # REQUIRED for exec roles
# args = ["--listen", ":8080"]
# [roles.app.env]
# KEY = "value"
`
