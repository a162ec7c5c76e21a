// Package manager owns the runtime state of one solver process: the
// session pool, the project registry, the model catalog, the strategy
// registry and the bundle codec. It is structured into small files by
// concern:
//
//   - manager.go: Manager type, New, startup loading, Ready and Close.
//   - config.go: Config and package defaults.
//   - types.go: manager lifecycle State.
//   - errors.go: error helpers (IsProjectNotFound, IsConflict, ...).
//   - projects.go: Projects, Project, Models, Session and Remove.
//   - bundles.go: Import, Export, ExportFile and compile_dir autoload.
//   - status_report.go: Status for /status.
//   - sanity.go: SanityCheck of the engine and directories.
//
// Build tags and runtimes:
//
//   - ONNX inference is enabled with `-tags=onnx`. Without it the engine is
//     a stub and every model fails to resolve with a dependency error; the
//     process still serves registry, export and import operations.
//
// External packages should treat this package as the orchestration layer
// and use public methods only.
package manager
