// Command motoadmin is the catalog administration CLI of the dealer portal.
//
// Log in once; the token is kept encrypted in the session store:
//
//	motoadmin login
//	motoadmin whoami
//
// Then manage models, their photos and specs, and the category list:
//
//	motoadmin models list --q enduro
//	motoadmin photos add 12 front.jpg side.png --optimize
//	motoadmin photos move 12 3 1
//	motoadmin specs import 12 specs.xlsx
//	motoadmin specs list 12 --grouped
//	motoadmin categories add "Quad bikes"
//
// Destructive commands ask for confirmation unless --yes is given.
// --metrics-textfile writes the run's Prometheus metrics for the
// node_exporter textfile collector.
package main
