// Command bokehctl runs one-shot operations against the photo backend that
// the viewer talks to.
//
// Usage:
//
//	bokehctl <command> [arguments]
//
// Commands:
//
//	photos [page]             List one page of the library in the configured
//	                          sort order.
//
//	rotate <id> <left|right>  Rotate a photo by a quarter turn, then queue a
//	                          thumbnail regeneration for it.
//
//	regenerate <id>|all       Queue thumbnail regeneration for one photo or
//	                          start a library-wide regeneration job.
//
//	scan [incremental|full]   Start a library scan.
//
//	jobs                      List backend jobs, including finished ones.
//
//	cancel <id> [-y]          Cancel a job. Asks for confirmation on a
//	                          terminal unless -y is given.
//
//	stats                     Show library size, disk usage and active jobs.
//
//	years                     Show photo counts per year.
//
//	folders                   Show the folder tree with photo counts.
//
//	url <id> [size]           Print the versioned thumbnail URL of a photo.
//
// Environment:
//
//	API_URL - Photo backend base URL (default: http://localhost:8000)
//	PER_PAGE, SORT, ORDER - Listing options shared with the viewer
//
// Exit status is 0 on success, 1 when the backend call fails and 2 on
// invalid arguments.
package main
