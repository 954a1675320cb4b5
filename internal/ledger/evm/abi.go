package evm

// certNFTABI is the subset of the CertNFT contract the client calls.
const certNFTABI = `[
  {"type":"function","name":"mint","stateMutability":"nonpayable",
   "inputs":[{"name":"ipfsHash","type":"string"},{"name":"name","type":"string"},{"name":"issuer","type":"string"},{"name":"issueDate","type":"string"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"batchMint","stateMutability":"nonpayable",
   "inputs":[{"name":"ipfsHashes","type":"string[]"},{"name":"names","type":"string[]"},{"name":"issuers","type":"string[]"},{"name":"issueDates","type":"string[]"}],
   "outputs":[]},
  {"type":"function","name":"getCert","stateMutability":"view",
   "inputs":[{"name":"tokenId","type":"uint256"}],
   "outputs":[{"name":"ipfsHash","type":"string"},{"name":"name","type":"string"},{"name":"issuer","type":"string"},{"name":"issueDate","type":"string"}]},
  {"type":"function","name":"isCertificateRevoked","stateMutability":"view",
   "inputs":[{"name":"tokenId","type":"uint256"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"revokeCertificate","stateMutability":"nonpayable",
   "inputs":[{"name":"tokenId","type":"uint256"}],
   "outputs":[]},
  {"type":"function","name":"nextId","stateMutability":"view",
   "inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"event","name":"Transfer","anonymous":false,
   "inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"tokenId","type":"uint256","indexed":true}]}
]`
