// Package yamlgraph provides the YAML implementation of the config.Loader
// interface. A YAML graph file mirrors the HCL layout:
//
//	nodes:
//	  - kind: ImageRead
//	    name: src
//	    parameters:
//	      filename: in.png
//	  - kind: Crop
//	    name: crop
//	    inputs: [src]
//	    parameters:
//	      quad: [0, 0, 0.5, 0.5]
package yamlgraph
